// Package executor is the stateful glue between the Director's
// instructions and the native filesystem surface: the Executor drives the
// host's native filesystem syscalls according to an instruction, preserving
// create-disposition variants, access-mode flags, asynchronous completion,
// and buffer-overflow partial-write semantics.
//
// Every native syscall the Executor would otherwise call directly is
// instead a function value passed in by the caller. The interception
// mechanism that actually reaches the kernel is outside this module, so
// the boundary is one function value per native call, and tests
// substitute fakes at exactly that seam.
package executor

import (
	"github.com/cbarrett/redirectfs/director"
	"github.com/cbarrett/redirectfs/handlestore"
	"github.com/cbarrett/redirectfs/internal/telemetry"
	"github.com/cbarrett/redirectfs/ntfileapi"
	"github.com/cbarrett/redirectfs/ntstatus"
	"go.uber.org/zap"
)

// RequestContext carries the opaque logging name and request-id pair
// every Executor entry point threads through to telemetry.
type RequestContext struct {
	Op        string
	RequestID string
}

func (c RequestContext) fields() []zap.Field {
	return telemetry.RequestFields(c.Op, c.RequestID)
}

// InstructionSource answers the Director's two questions. *director.Director
// satisfies this structurally; tests substitute a fake.
type InstructionSource interface {
	InstructionForFileOperation(absoluteFilePath string, access ntfileapi.FileAccessMode, disposition ntfileapi.CreateDisposition) director.FileOperationInstruction
	InstructionForDirectoryEnumeration(associatedPath, realOpenedPath string) director.DirectoryEnumerationInstruction
}

// IOStatusBlock is the Executor's view of an IO_STATUS_BLOCK: a result
// code plus an "Information" field whose meaning depends on the request
// (bytes written; on overflow, the bytes of the truncated output actually
// written, not the full required length).
type IOStatusBlock struct {
	Status      ntstatus.Code
	Information uint32
}

// EnsureDirectoryFunc performs the EnsurePathHierarchyExists pre-operation:
// ensure that path and all of its missing ancestors exist as directories.
// It is the one place the Executor causes a real filesystem side effect
// outside of the native syscalls it is handed, so it is injected exactly
// like those syscalls are.
type EnsureDirectoryFunc func(path string) ntstatus.Code

// Executor drives native filesystem syscalls according to the instructions
// an InstructionSource produces, tracking opened handles in a
// *handlestore.Store.
type Executor struct {
	Store           *handlestore.Store
	EnsureDirectory EnsureDirectoryFunc
}

// New constructs an Executor over store. ensureDirectory may be nil if no
// rule in the configured Director ever attaches EnsurePathHierarchyExists
// (tests for rule sets with no nested auto-vivified targets commonly pass
// nil).
func New(store *handlestore.Store, ensureDirectory EnsureDirectoryFunc) *Executor {
	return &Executor{Store: store, EnsureDirectory: ensureDirectory}
}

// runPreOperations executes every pre-operation instr carries, in order,
// aborting with the first failure's status.
func (e *Executor) runPreOperations(instr director.FileOperationInstruction) ntstatus.Code {
	if instr.PreOperations.Has(director.EnsurePathHierarchyExists) {
		if e.EnsureDirectory == nil {
			return ntstatus.InternalError
		}
		if status := e.EnsureDirectory(instr.PreOperationOperand); !status.IsSuccess() {
			return status
		}
	}
	return ntstatus.Success
}

// candidatesFor builds the ordered list of paths the try-loop should
// attempt for a file operation, given the original (unredirected) absolute
// path and the instruction the Director produced.
func candidatesFor(originalPath string, instr director.FileOperationInstruction) []string {
	switch instr.FilesToTry {
	case director.UnredirectedOnly:
		return []string{originalPath}
	case director.RedirectedOnly:
		return []string{instr.RedirectedFilename}
	case director.RedirectedFirst:
		return []string{instr.RedirectedFilename, originalPath}
	case director.UnredirectedFirst:
		return []string{originalPath, instr.RedirectedFilename}
	default:
		return []string{originalPath}
	}
}

// associatedAndReal resolves the (associatedPath, realOpenedPath) pair to
// cache for handle, given the candidate that actually succeeded.
func associatedAndReal(originalPath string, instr director.FileOperationInstruction, successfulCandidate string) (associated, real string, ok bool) {
	switch instr.AssociateNameWithHandle {
	case director.AssociateNone:
		return "", "", false
	case director.AssociateWhicheverSucceeded:
		return successfulCandidate, successfulCandidate, true
	case director.AssociateUnredirected:
		return originalPath, successfulCandidate, true
	case director.AssociateRedirected:
		return instr.RedirectedFilename, successfulCandidate, true
	default:
		return "", "", false
	}
}

// tryCandidates invokes attempt against each of candidates in order,
// stopping at the first result that is not one of the four
// "name/path not found" codes (success included). It returns the winning
// candidate's index (or len(candidates) if every candidate was exhausted)
// and the final status.
func tryCandidates(candidates []string, attempt func(candidate string) ntstatus.Code) (winner int, status ntstatus.Code) {
	for i, candidate := range candidates {
		status = attempt(candidate)
		if !ntstatus.IsNameOrPathNotFound(status) {
			return i, status
		}
	}
	return len(candidates), status
}

package executor

import (
	"github.com/cbarrett/redirectfs/director"
	"github.com/cbarrett/redirectfs/handlestore"
	"github.com/cbarrett/redirectfs/internal/telemetry"
	"github.com/cbarrett/redirectfs/ntfileapi"
	"github.com/cbarrett/redirectfs/ntstatus"
	"github.com/cbarrett/redirectfs/winpath"
	"go.uber.org/zap"
)

// OpenFunc is the native "open or create a file" syscall, parameterized by
// one candidate path and its native create disposition.
type OpenFunc func(path string, access ntfileapi.FileAccessMode, disposition ntfileapi.NativeDisposition, options uint32) (handle uintptr, status ntstatus.Code)

// RootDirectoryLookup resolves a root-directory handle's cached record, if
// any. A thin wrapper around (*handlestore.Store).Get that returns only the
// record's AssociatedPath satisfies this.
type RootDirectoryLookup func(handle handlestore.Handle) (associatedPath string, cached bool)

// nativeDispositionFor picks the native disposition to submit for every
// candidate, collapsing the requested disposition and the instruction's
// CreateDispositionPreference: a preference for one over the other
// overrides every candidate uniformly, so that a fallback candidate never
// creates a shadow file (or fails to open one) against the caller's
// actual intent.
func nativeDispositionFor(requested ntfileapi.NativeDisposition, preference director.CreateDispositionPreference) ntfileapi.NativeDisposition {
	switch preference {
	case director.PreferCreateNewFile:
		return ntfileapi.NativeCreate
	case director.PreferOpenExistingFile:
		return ntfileapi.NativeOpen
	default:
		return requested
	}
}

// NewFileHandle implements the core's new-handle operation: resolve any
// root-directory-relative path, ask the
// instruction source what to do, run pre-operations, try each candidate
// path in instruction order, and associate the winning handle per the
// instruction's AssociateNameWithHandle policy.
func (e *Executor) NewFileHandle(
	ctx RequestContext,
	objectPath string,
	rootDirectory *handlestore.Handle,
	rootLookup RootDirectoryLookup,
	access ntfileapi.FileAccessMode,
	disposition ntfileapi.NativeDisposition,
	options uint32,
	instructionSrc InstructionSource,
	nativeInvoke OpenFunc,
) (handle uintptr, status ntstatus.Code) {
	log := telemetry.L().With(ctx.fields()...)

	path := objectPath
	if rootDirectory != nil {
		associated, cached := rootLookup(*rootDirectory)
		if !cached {
			// An uncached root is by construction uninteresting: pass
			// straight through with no instruction consulted at all. The
			// path stays root-relative, so no namespace prefix applies.
			return nativeInvoke(objectPath, access, disposition, options)
		}
		path = associated + `\` + objectPath
	}

	instr := instructionSrc.InstructionForFileOperation(path, access, ntfileapi.ToInternal(disposition))
	if instr.IsNoRedirectionOrInterception() {
		return nativeInvoke(winpath.EnsurePrefix(path), access, disposition, options)
	}

	if status := e.runPreOperations(instr); !status.IsSuccess() {
		log.Debug("pre-operation failed", zap.Stringer("status", status))
		return 0, status
	}

	candidates := candidatesFor(path, instr)
	nativeDisposition := nativeDispositionFor(disposition, instr.CreateDispositionPreference)

	var winningCandidate string
	winner, finalStatus := tryCandidates(candidates, func(candidate string) ntstatus.Code {
		var s ntstatus.Code
		handle, s = nativeInvoke(winpath.EnsurePrefix(candidate), access, nativeDisposition, options)
		return s
	})
	if winner < len(candidates) {
		winningCandidate = candidates[winner]
	}

	if !finalStatus.IsSuccess() {
		return handle, finalStatus
	}

	if associated, real, ok := associatedAndReal(path, instr, winningCandidate); ok {
		_ = e.Store.Insert(handlestore.Handle(handle), associated, real)
	}

	return handle, finalStatus
}

package executor

import (
	"github.com/cbarrett/redirectfs/handlestore"
	"github.com/cbarrett/redirectfs/ntfileapi"
	"github.com/cbarrett/redirectfs/ntstatus"
	"github.com/cbarrett/redirectfs/winpath"
)

// RenameRequest is the core's view of a FILE_RENAME_INFORMATION payload:
// a target name that is sometimes relative to a root-directory handle
// embedded in the request rather than to the filesystem root.
type RenameRequest struct {
	TargetName        string
	TargetIsRelative  bool
	RootDirectory     *handlestore.Handle
}

// RenameFunc is the native "rename the file behind this handle" syscall.
type RenameFunc func(handle handlestore.Handle, targetPath string) ntstatus.Code

// SourceAbsolutePathFunc asks the host for a handle's absolute path, used
// as the fallback when a relative rename target's source handle is not
// cached.
type SourceAbsolutePathFunc func(handle handlestore.Handle) (string, ntstatus.Code)

// RenameByHandle implements the core's rename-by-handle operation: resolve
// a relative rename target to an absolute path, obtain an instruction for
// it exactly as NewFileHandle would, run pre-operations, try each
// candidate target name in instruction order, and update (or erase) the
// source handle's cache entry per the name-association policy.
func (e *Executor) RenameByHandle(
	ctx RequestContext,
	handle handlestore.Handle,
	req RenameRequest,
	instructionSrc InstructionSource,
	sourceAbsolutePath SourceAbsolutePathFunc,
	nativeInvoke RenameFunc,
) ntstatus.Code {
	target := req.TargetName

	if req.TargetIsRelative {
		var base string
		if req.RootDirectory != nil {
			if rec, cached := e.Store.Get(*req.RootDirectory); cached {
				base = rec.AssociatedPath
			}
		}
		if base == "" {
			if rec, cached := e.Store.Get(handle); cached {
				base = winpath.Dir(rec.AssociatedPath)
			}
		}
		if base == "" {
			abs, status := sourceAbsolutePath(handle)
			if !status.IsSuccess() {
				return status
			}
			base = winpath.Dir(abs)
		}
		target = base + `\` + target
	}

	instr := instructionSrc.InstructionForFileOperation(target, ntfileapi.FileAccessMode{Write: true}, ntfileapi.OpenExistingFile)
	if instr.IsNoRedirectionOrInterception() {
		return nativeInvoke(handle, winpath.EnsurePrefix(target))
	}

	if status := e.runPreOperations(instr); !status.IsSuccess() {
		return status
	}

	candidates := candidatesFor(target, instr)

	var winningCandidate string
	winner, finalStatus := tryCandidates(candidates, func(candidate string) ntstatus.Code {
		return nativeInvoke(handle, winpath.EnsurePrefix(candidate))
	})
	if winner < len(candidates) {
		winningCandidate = candidates[winner]
	}

	if !finalStatus.IsSuccess() {
		return finalStatus
	}

	if associated, real, ok := associatedAndReal(target, instr, winningCandidate); ok {
		e.Store.InsertOrUpdate(handle, associated, real)
	} else {
		e.Store.Remove(handle)
	}

	return finalStatus
}

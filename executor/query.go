package executor

import (
	"github.com/cbarrett/redirectfs/fileinfo"
	"github.com/cbarrett/redirectfs/handlestore"
	"github.com/cbarrett/redirectfs/ntfileapi"
	"github.com/cbarrett/redirectfs/ntstatus"
	"github.com/cbarrett/redirectfs/winpath"
)

// QueryByNameFunc is the native "query attributes by path" syscall; the
// core does not interpret the attribute payload it writes, only which
// path it is handed.
type QueryByNameFunc func(path string, access ntfileapi.FileAccessMode) ntstatus.Code

// QueryByObjectAttributes implements the core's name-based query
// operation: mirrors NewFileHandle minus the disposition logic, trying
// each candidate path the Director's instruction names in order.
func (e *Executor) QueryByObjectAttributes(
	ctx RequestContext,
	objectPath string,
	access ntfileapi.FileAccessMode,
	instructionSrc InstructionSource,
	nativeInvoke QueryByNameFunc,
) ntstatus.Code {
	instr := instructionSrc.InstructionForFileOperation(objectPath, access, ntfileapi.OpenExistingFile)
	if instr.IsNoRedirectionOrInterception() {
		return nativeInvoke(winpath.EnsurePrefix(objectPath), access)
	}

	if status := e.runPreOperations(instr); !status.IsSuccess() {
		return status
	}

	candidates := candidatesFor(objectPath, instr)
	_, status := tryCandidates(candidates, func(candidate string) ntstatus.Code {
		return nativeInvoke(winpath.EnsurePrefix(candidate), access)
	})
	return status
}

// QueryByHandleNativeFunc is the native "query information by handle"
// syscall: it fills buffer (sized to InfoLength) with the requested
// infoClass's record and reports how many bytes it wrote.
type QueryByHandleNativeFunc func(buffer []byte, infoClass fileinfo.NameQueryInfoClass) (status ntstatus.Code, bytesWritten int)

// NameTransform optionally rewrites a cached associated path before it is
// substituted into a QueryByHandle response (e.g. stripping a drive-letter
// prefix the way the native layer's own handle-name queries do). A nil
// transform leaves the associated path as-is.
type NameTransform func(associatedPath string) string

func isNameBearingClass(infoClass fileinfo.NameQueryInfoClass) bool {
	switch infoClass {
	case fileinfo.FileNameInfo, fileinfo.FileNormalizedNameInfo, fileinfo.FileAllInfo:
		return true
	default:
		return false
	}
}

// QueryByHandle implements the core's query-by-handle operation: invoke
// the native query first; for cached handles and a filename-bearing info
// class, replace the returned filename with the handle's associated path
// (optionally transformed), re-deriving the overflow/success status from
// whether the substituted name fits.
func (e *Executor) QueryByHandle(
	ctx RequestContext,
	handle handlestore.Handle,
	ioStatus *IOStatusBlock,
	buffer []byte,
	infoClass fileinfo.NameQueryInfoClass,
	nativeInvoke QueryByHandleNativeFunc,
	nameTransform NameTransform,
) ntstatus.Code {
	nativeStatus, n := nativeInvoke(buffer, infoClass)
	ioStatus.Status = nativeStatus
	ioStatus.Information = uint32(n)

	if !isNameBearingClass(infoClass) {
		return nativeStatus
	}
	if nativeStatus != ntstatus.Success && nativeStatus != ntstatus.BufferOverflow {
		return nativeStatus
	}

	rec, cached := e.Store.Get(handle)
	if !cached {
		return nativeStatus
	}

	layout, ok := fileinfo.ResolveNameQuery(infoClass)
	if !ok {
		return ntstatus.InternalError
	}

	newName := rec.AssociatedPath
	if nameTransform != nil {
		newName = nameTransform(newName)
	}

	// Both "new fits and old fit" and "new fits but old hadn't" resolve to
	// Success below: only whether the new name itself fits matters.
	requiredBytes := fileinfo.FileNameBytes(newName)
	available := len(buffer) - layout.FileName

	if requiredBytes <= available {
		written := layout.WriteFileName(buffer, newName)
		layout.WriteFileNameLength(buffer, uint32(written*2))
		ioStatus.Information = uint32(layout.FileName + written*2)
		ioStatus.Status = ntstatus.Success
		return ntstatus.Success
	}

	written := layout.WriteFileName(buffer, newName)
	layout.WriteFileNameLength(buffer, uint32(requiredBytes))
	ioStatus.Information = uint32(layout.FileName + written*2)
	ioStatus.Status = ntstatus.BufferOverflow
	return ntstatus.BufferOverflow
}

package executor

import (
	"github.com/cbarrett/redirectfs/handlestore"
	"github.com/cbarrett/redirectfs/ntstatus"
)

// CloseFunc is the native "close this handle" syscall.
type CloseFunc func() ntstatus.Code

// CloseHandle implements the core's close-handle operation: if handle is
// cached, remove it and invoke nativeInvoke under the store's exclusive
// lock (so a concurrent lookup can never observe a closed handle as still
// cached); otherwise pass straight through to nativeInvoke once the store's
// lookup has released the lock, so the native close of an uncached handle
// never runs under the store's lock.
func (e *Executor) CloseHandle(ctx RequestContext, handle handlestore.Handle, nativeInvoke CloseFunc) ntstatus.Code {
	var status ntstatus.Code
	cached, _ := e.Store.RemoveAndClose(handle, func() error {
		status = nativeInvoke()
		return nil
	})
	if !cached {
		status = nativeInvoke()
	}
	return status
}

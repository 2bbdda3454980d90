package executor

import (
	"github.com/cbarrett/redirectfs/executor/asyncpool"
	"github.com/cbarrett/redirectfs/handlestore"
	"github.com/cbarrett/redirectfs/ntstatus"
)

// EventSignaler signals the host-supplied completion event for an
// asynchronous directory-enumeration advance.
type EventSignaler interface {
	Signal()
}

// APCRoutine is the host's asynchronous-procedure-call callback, queued
// on the thread that submitted the advance.
type APCRoutine func(apcContext interface{}, ioStatus *IOStatusBlock)

// APCQueuer queues routine on the submitting thread once the advance
// completes. Implementations must duplicate the submitting thread's
// handle at submission time, so the worker can still queue the APC after
// the submitting thread has returned from the syscall.
type APCQueuer interface {
	Queue(routine APCRoutine, apcContext interface{}, ioStatus *IOStatusBlock)
}

// IsAsynchronousFunc reports whether handle's I/O mode is asynchronous.
// Only the host knows how a handle was opened, so the answer is injected
// rather than derived here.
type IsAsynchronousFunc func(handle handlestore.Handle) bool

// AsyncDirectoryEnumerationAdvance wraps DirectoryEnumerationAdvance with
// synchronous/asynchronous dispatch: a
// synchronous handle runs the advance inline and returns its real status;
// an asynchronous handle submits the advance to pool and returns Pending
// immediately, with event and apc each invoked exactly once when the
// worker's advance finishes.
func (e *Executor) AsyncDirectoryEnumerationAdvance(
	ctx RequestContext,
	handle handlestore.Handle,
	isAsync IsAsynchronousFunc,
	pool *asyncpool.Pool,
	event EventSignaler,
	apc APCQueuer,
	apcRoutine APCRoutine,
	apcContext interface{},
	ioStatus *IOStatusBlock,
	buffer []byte,
	queryFlags uint32,
	applicationFilePattern string,
) ntstatus.Code {
	if !isAsync(handle) {
		return e.DirectoryEnumerationAdvance(ctx, handle, ioStatus, buffer, queryFlags, applicationFilePattern)
	}

	pool.Submit(
		func() (uint32, int) {
			status := e.DirectoryEnumerationAdvance(ctx, handle, ioStatus, buffer, queryFlags, applicationFilePattern)
			return uint32(status), int(ioStatus.Information)
		},
		func(status uint32, bytesWritten int) {
			ioStatus.Status = ntstatus.Code(status)
			ioStatus.Information = uint32(bytesWritten)
			if event != nil {
				event.Signal()
			}
			if apc != nil && apcRoutine != nil {
				apc.Queue(apcRoutine, apcContext, ioStatus)
			}
		},
	)

	return ntstatus.Pending
}

package executor

import (
	"strings"

	"github.com/cbarrett/redirectfs/director"
	"github.com/cbarrett/redirectfs/directoryqueue"
	"github.com/cbarrett/redirectfs/fileinfo"
	"github.com/cbarrett/redirectfs/handlestore"
	"github.com/cbarrett/redirectfs/ntstatus"
)

// Enumeration query flags.
const (
	SLRestartScan       uint32 = 0x00000001
	SLReturnSingleEntry uint32 = 0x00000002
)

// OpenEnumerationSourceFunc opens a fresh native batch-directory-query
// source against path, for the EnumerationQueue it will feed.
type OpenEnumerationSourceFunc func(path string) (directoryqueue.BatchSource, ntstatus.Code)

// DirectoryEnumerationPrepare implements the core's prepare operation: it
// is idempotent (a handle already carrying an EnumerationState is left
// untouched), rejects an undersized buffer with InfoLengthMismatch before
// ever consulting the instruction source, and otherwise attaches whatever
// directoryqueue.Queue the Director's instruction calls for (nil meaning
// "pass through").
//
// intercepted reports whether the caller should route the matching
// Advance call into this Executor at all; false means the shim should
// forward the enumeration straight to the kernel.
func (e *Executor) DirectoryEnumerationPrepare(
	ctx RequestContext,
	handle handlestore.Handle,
	bufferLength int,
	infoClass fileinfo.InfoClass,
	applicationFilePattern string,
	instructionSrc InstructionSource,
	openSource OpenEnumerationSourceFunc,
) (intercepted bool, status ntstatus.Code) {
	layout, ok := fileinfo.Resolve(infoClass)
	if !ok {
		return false, ntstatus.Success
	}
	if bufferLength < layout.BaseSize {
		return false, ntstatus.InfoLengthMismatch
	}

	rec, cached := e.Store.Get(handle)
	if !cached {
		return false, ntstatus.Success
	}
	if rec.Enumeration != nil {
		// Idempotent: a second Prepare call on an already-attached
		// handle is a no-op.
		return rec.Enumeration.Queue != nil, ntstatus.Success
	}

	instr := instructionSrc.InstructionForDirectoryEnumeration(rec.AssociatedPath, rec.RealOpenedPath)

	queue, buildStatus := buildEnumerationQueue(instr, layout, rec.AssociatedPath, rec.RealOpenedPath, applicationFilePattern, openSource)
	if !buildStatus.IsSuccess() {
		return false, buildStatus
	}

	state := &handlestore.EnumerationState{
		Queue:           queue,
		Layout:          layout,
		EmittedNames:    map[string]struct{}{},
		FirstInvocation: true,
	}
	e.Store.AttachEnumeration(handle, state)

	return queue != nil, ntstatus.Success
}

// buildEnumerationQueue constructs the directoryqueue.Queue an instruction
// calls for: nil for PassThrough, a single EnumerationQueue or
// NameInsertionQueue for the single-source shapes, and a MergedQueue
// combining both when the instruction is EnumerateAndInsertNames.
func buildEnumerationQueue(
	instr director.DirectoryEnumerationInstruction,
	layout fileinfo.Layout,
	associatedPath, realOpenedPath, applicationFilePattern string,
	openSource OpenEnumerationSourceFunc,
) (directoryqueue.Queue, ntstatus.Code) {
	var queues []directoryqueue.Queue

	for _, src := range instr.EnumerateSources {
		path := associatedPath
		if src.Path == director.SourceRealOpenedPath {
			path = realOpenedPath
		}
		source, status := openSource(path)
		if !status.IsSuccess() {
			return nil, status
		}
		q := directoryqueue.NewEnumerationQueue(layout, source, src.Policy, src.Rule, applicationFilePattern)
		queues = append(queues, q)
	}

	if len(instr.SyntheticNames) > 0 {
		q := directoryqueue.NewNameInsertionQueue(layout, instr.SyntheticNames, applicationFilePattern)
		queues = append(queues, q)
	}

	switch len(queues) {
	case 0:
		return nil, ntstatus.Success
	case 1:
		return queues[0], ntstatus.Success
	default:
		return directoryqueue.NewMergedQueue(queues...), ntstatus.Success
	}
}

// DirectoryEnumerationAdvance implements the core's advance operation
// synchronously: restart handling for SL_RESTART_SCAN, the
// NoSuchFile-vs-NoMoreFiles distinction on a filtered-empty first
// invocation, buffer-overflow partial-write semantics that never pop the
// oversized head record, and SL_RETURN_SINGLE_ENTRY single-record
// advances. Callers that need to submit this to a worker and signal
// completion asynchronously should wrap this method; see
// executor/asyncpool.
func (e *Executor) DirectoryEnumerationAdvance(
	ctx RequestContext,
	handle handlestore.Handle,
	ioStatus *IOStatusBlock,
	buffer []byte,
	queryFlags uint32,
	applicationFilePattern string,
) ntstatus.Code {
	var status ntstatus.Code
	var written int

	found := e.Store.MutateEnumeration(handle, func(state *handlestore.EnumerationState) {
		if state.Queue == nil {
			status = ntstatus.InternalError
			return
		}

		if queryFlags&SLRestartScan != 0 {
			state.Queue.Restart(applicationFilePattern)
			state.EmittedNames = map[string]struct{}{}
			state.FirstInvocation = true
		}

		status, written = advanceQueue(state, buffer, queryFlags&SLReturnSingleEntry != 0)
	})
	if !found {
		return ntstatus.InternalError
	}

	ioStatus.Status = status
	ioStatus.Information = uint32(written)
	return status
}

// advanceQueue performs one buffer's worth of copy/pop/dedup against
// state's queue, patching each written record's next-entry-offset to
// point at the record written immediately after it (and clearing the
// last one's), exactly mirroring the contiguous NT directory-information
// buffer layout.
func advanceQueue(state *handlestore.EnumerationState, buffer []byte, singleEntry bool) (ntstatus.Code, int) {
	layout := state.Layout
	q := state.Queue

	written := 0
	previousStart := -1
	matchedAny := false

	for q.Status() == directoryqueue.StatusMoreEntries {
		name := q.FrontName()
		upper := strings.ToUpper(name)
		if _, seen := state.EmittedNames[upper]; seen {
			q.PopFront()
			continue
		}

		size := q.FrontSize()
		if written+size > len(buffer) {
			if !matchedAny {
				n := q.CopyFrontInto(buffer[written:])
				layout.WriteFileNameLength(buffer[written:], uint32(fileinfo.FileNameBytes(name)))
				layout.WriteNextEntryOffset(buffer[written:], 0)
				return ntstatus.BufferOverflow, written + n
			}
			break
		}

		recordStart := written
		q.CopyFrontInto(buffer[recordStart:])
		layout.WriteNextEntryOffset(buffer[recordStart:], 0)
		if previousStart >= 0 {
			layout.WriteNextEntryOffset(buffer[previousStart:], uint32(recordStart-previousStart))
		}
		previousStart = recordStart
		written += size

		state.EmittedNames[upper] = struct{}{}
		matchedAny = true
		q.PopFront()

		if singleEntry {
			break
		}
	}

	if !matchedAny {
		if q.Status() == directoryqueue.StatusError {
			return ntstatus.InternalError, 0
		}
		if state.FirstInvocation {
			state.FirstInvocation = false
			return ntstatus.NoSuchFile, 0
		}
		return ntstatus.NoMoreFiles, 0
	}

	state.FirstInvocation = false
	return ntstatus.Success, written
}

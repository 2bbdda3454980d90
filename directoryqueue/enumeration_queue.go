package directoryqueue

import "github.com/cbarrett/redirectfs/fileinfo"

// Entry is one record a native batch-enumeration primitive yielded: a
// filename plus whatever opaque per-record payload the Executor will later
// need to reconstruct the full file-information record (attributes,
// timestamps, sizes — the core does not interpret these, it only relocates
// them into the caller's buffer per the Layout).
type Entry struct {
	Name    string
	Payload []byte // the native record's fixed-size body, minus its filename
}

// BatchSource refills a batch of Entry values from the native
// batch-directory-query primitive. A nil, empty return with
// exhausted=true means the native enumeration is done. restart is true on
// the first pull after the queue's Restart is invoked; the source must
// rewind to the start of the directory, the way the native primitive does
// when handed a restart-scan flag.
type BatchSource func(restart bool) (batch []Entry, exhausted bool, err error)

// EnumerationQueue wraps a native enumeration against a freshly opened
// directory handle. Its filter contract composes (a) the
// rule-scope filter it is constructed with and (b) the application-supplied
// query file pattern.
type EnumerationQueue struct {
	layout          fileinfo.Layout
	source          BatchSource
	policy          FilterPolicy
	rule            PatternMatcher
	applicationGlob string

	batch          []Entry
	pos            int
	status         Status
	sourceErr      error
	restartPending bool
}

// NewEnumerationQueue constructs an EnumerationQueue over source, filtered
// by policy/rule and by applicationGlob (the application's own query file
// pattern, "" or "*" for "match everything"). The first batch is pulled
// immediately so Status reflects the directory's real contents from the
// start.
func NewEnumerationQueue(layout fileinfo.Layout, source BatchSource, policy FilterPolicy, rule PatternMatcher, applicationGlob string) *EnumerationQueue {
	q := &EnumerationQueue{layout: layout, source: source, policy: policy, rule: rule, applicationGlob: applicationGlob, status: StatusMoreEntries}
	q.advanceToMatch()
	return q
}

func (q *EnumerationQueue) advanceToMatch() {
	for {
		if q.pos < len(q.batch) {
			e := q.batch[q.pos]
			if passesFilter(q.policy, q.rule, e.Name) && matchesApplicationPattern(q.applicationGlob, e.Name) {
				q.status = StatusMoreEntries
				return
			}
			q.pos++
			continue
		}

		// Batch exhausted; refill.
		batch, exhausted, err := q.source(q.restartPending)
		q.restartPending = false
		if err != nil {
			q.sourceErr = err
			q.status = StatusError
			return
		}
		q.batch = batch
		q.pos = 0
		if len(batch) == 0 {
			if exhausted {
				q.status = StatusNoMoreFiles
				return
			}
			// Nothing in this batch but more may follow; keep pulling.
			continue
		}
	}
}

func (q *EnumerationQueue) Status() Status { return q.status }

func (q *EnumerationQueue) front() (Entry, bool) {
	if q.status != StatusMoreEntries || q.pos >= len(q.batch) {
		return Entry{}, false
	}
	return q.batch[q.pos], true
}

func (q *EnumerationQueue) FrontName() string {
	e, ok := q.front()
	if !ok {
		return ""
	}
	return e.Name
}

func (q *EnumerationQueue) FrontSize() int {
	e, ok := q.front()
	if !ok {
		return 0
	}
	return q.layout.SizeForFileName(fileinfo.FileNameBytes(e.Name))
}

func (q *EnumerationQueue) CopyFrontInto(buf []byte) int {
	e, ok := q.front()
	if !ok {
		return 0
	}
	copy(buf, e.Payload)
	written := q.layout.WriteFileName(buf, e.Name)
	q.layout.WriteFileNameLength(buf, uint32(written*2))
	return q.layout.FileName + written*2
}

func (q *EnumerationQueue) PopFront() {
	q.pos++
	q.advanceToMatch()
}

func (q *EnumerationQueue) Restart(filePattern string) {
	q.applicationGlob = filePattern
	q.batch = nil
	q.pos = 0
	q.status = StatusMoreEntries
	q.sourceErr = nil
	q.restartPending = true
	q.advanceToMatch()
}

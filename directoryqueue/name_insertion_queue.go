package directoryqueue

import "github.com/cbarrett/redirectfs/fileinfo"

// SyntheticName is one rule-derived directory name to insert into an
// enumeration: a virtual subdirectory entry standing in for a rule whose
// origin does not exist as a real directory.
type SyntheticName struct {
	// Name is the origin directory's leaf name.
	Name string
}

// NameInsertionQueue synthesizes one record per configured SyntheticName,
// each further filtered by the application's query file pattern.
type NameInsertionQueue struct {
	layout fileinfo.Layout
	all    []SyntheticName
	glob   string

	filtered []SyntheticName
	pos      int
}

// NewNameInsertionQueue constructs a NameInsertionQueue over names,
// filtered by the application's query file pattern applicationGlob ("" or
// "*" for "match everything").
func NewNameInsertionQueue(layout fileinfo.Layout, names []SyntheticName, applicationGlob string) *NameInsertionQueue {
	q := &NameInsertionQueue{layout: layout, all: names, glob: applicationGlob}
	q.applyFilter()
	return q
}

func (q *NameInsertionQueue) applyFilter() {
	q.filtered = q.filtered[:0]
	for _, n := range q.all {
		if matchesApplicationPattern(q.glob, n.Name) {
			q.filtered = append(q.filtered, n)
		}
	}
	q.pos = 0
}

func (q *NameInsertionQueue) Status() Status {
	if q.pos < len(q.filtered) {
		return StatusMoreEntries
	}
	return StatusNoMoreFiles
}

func (q *NameInsertionQueue) front() (SyntheticName, bool) {
	if q.pos >= len(q.filtered) {
		return SyntheticName{}, false
	}
	return q.filtered[q.pos], true
}

func (q *NameInsertionQueue) FrontName() string {
	e, _ := q.front()
	return e.Name
}

func (q *NameInsertionQueue) FrontSize() int {
	e, ok := q.front()
	if !ok {
		return 0
	}
	return q.layout.SizeForFileName(fileinfo.FileNameBytes(e.Name))
}

func (q *NameInsertionQueue) CopyFrontInto(buf []byte) int {
	e, ok := q.front()
	if !ok {
		return 0
	}
	written := q.layout.WriteFileName(buf, e.Name)
	q.layout.WriteFileNameLength(buf, uint32(written*2))
	return q.layout.FileName + written*2
}

func (q *NameInsertionQueue) PopFront() {
	if q.pos < len(q.filtered) {
		q.pos++
	}
}

func (q *NameInsertionQueue) Restart(filePattern string) {
	q.glob = filePattern
	q.applyFilter()
}

package directoryqueue

import "strings"

// MergedQueue order-merges several child queues with deduplication. At all
// times its head is the head of whichever non-exhausted child sorts first
// by case-insensitive filename; ties (the same name present in more than
// one child, e.g. an Overlay rule's target and origin both listing a file
// with the same name) are resolved by advancing every tied child together,
// so the merged output contains each name once.
//
// Ordering is ascending, case-insensitive, stable by child index on exact
// ties.
type MergedQueue struct {
	children []Queue

	// current holds the precomputed head: the winning name and the
	// indices of every child currently fronting that same name.
	currentName string
	tied        []int
	status      Status
}

// NewMergedQueue constructs a MergedQueue over children, in the given
// order (used only to break exact name ties deterministically).
func NewMergedQueue(children ...Queue) *MergedQueue {
	q := &MergedQueue{children: children}
	q.advance()
	return q
}

func (q *MergedQueue) advance() {
	q.tied = q.tied[:0]
	sawError := false

	for i, c := range q.children {
		switch c.Status() {
		case StatusMoreEntries:
			name := c.FrontName()
			switch {
			case len(q.tied) == 0:
				q.currentName = name
				q.tied = append(q.tied, i)
			case strings.EqualFold(name, q.currentName):
				q.tied = append(q.tied, i)
			case strings.ToUpper(name) < strings.ToUpper(q.currentName):
				q.currentName = name
				q.tied = q.tied[:0]
				q.tied = append(q.tied, i)
			}
		case StatusError:
			sawError = true
		}
	}

	switch {
	case len(q.tied) > 0:
		q.status = StatusMoreEntries
	case sawError:
		q.status = StatusError
	default:
		q.status = StatusNoMoreFiles
	}
}

func (q *MergedQueue) Status() Status { return q.status }

func (q *MergedQueue) leader() Queue {
	if len(q.tied) == 0 {
		return nil
	}
	return q.children[q.tied[0]]
}

func (q *MergedQueue) FrontName() string {
	if l := q.leader(); l != nil {
		return l.FrontName()
	}
	return ""
}

func (q *MergedQueue) FrontSize() int {
	if l := q.leader(); l != nil {
		return l.FrontSize()
	}
	return 0
}

func (q *MergedQueue) CopyFrontInto(buf []byte) int {
	if l := q.leader(); l != nil {
		return l.CopyFrontInto(buf)
	}
	return 0
}

func (q *MergedQueue) PopFront() {
	for _, i := range q.tied {
		q.children[i].PopFront()
	}
	q.advance()
}

func (q *MergedQueue) Restart(filePattern string) {
	for _, c := range q.children {
		c.Restart(filePattern)
	}
	q.advance()
}

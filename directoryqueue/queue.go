// Package directoryqueue implements a small hierarchy of lazy, pull-based
// sequences yielding file-information records, culminating in a merged,
// deduplicated, filter-matched stream shaped like a native enumeration
// response.
//
// The queue interface is modeled as a Go interface satisfied by three
// concrete types so tests can inject a mock variant satisfying the same
// contract.
package directoryqueue

import "github.com/cbarrett/redirectfs/redirectrule"

// Status is the result of the most recent operation on a Queue.
type Status int

const (
	StatusSuccess Status = iota
	StatusMoreEntries
	StatusNoMoreFiles
	StatusError
)

// Queue is the common contract every directory-operation queue satisfies.
type Queue interface {
	// Status reports the outcome of the most recent positioning operation.
	Status() Status
	// FrontSize returns the total byte size of the record at the head,
	// for a filename of FrontName's length, under layout.
	FrontSize() int
	// FrontName returns the filename of the record at the head.
	FrontName() string
	// CopyFrontInto writes the head record into buf, returning the number
	// of bytes copied (possibly less than FrontSize, for buffer-overflow
	// truncation semantics).
	CopyFrontInto(buf []byte) (bytesCopied int)
	// PopFront advances past the head record.
	PopFront()
	// Restart rewinds the queue with a possibly-new application file
	// pattern filter.
	Restart(filePattern string)
}

// FilterPolicy selects which names a queue emits, composing the rule-scope
// filter a queue is constructed with.
type FilterPolicy int

const (
	// IncludeAll passes every name through.
	IncludeAll FilterPolicy = iota
	// IncludeOnlyMatching passes only names matching the named rule's
	// patterns.
	IncludeOnlyMatching
	// IncludeAllExceptMatching passes every name except those matching
	// the named rule's patterns.
	IncludeAllExceptMatching
)

// PatternMatcher is the minimal rule surface a filter needs: whether a
// filename matches the rule's configured patterns. redirectrule.Rule
// satisfies this.
type PatternMatcher interface {
	FileNameMatchesAnyPattern(name string) bool
}

// passesFilter reports whether name should be emitted under policy relative
// to rule (rule may be nil for IncludeAll).
func passesFilter(policy FilterPolicy, rule PatternMatcher, name string) bool {
	switch policy {
	case IncludeAll:
		return true
	case IncludeOnlyMatching:
		return rule != nil && rule.FileNameMatchesAnyPattern(name)
	case IncludeAllExceptMatching:
		return rule == nil || !rule.FileNameMatchesAnyPattern(name)
	default:
		return true
	}
}

// matchesApplicationPattern reports whether name matches the application's
// own query file pattern, on top of the rule-scope filter already applied
// by passesFilter. An empty pattern matches everything.
func matchesApplicationPattern(pattern, name string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	return redirectrule.WildcardMatch(pattern, name)
}

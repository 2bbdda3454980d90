// Package director compiles a declarative rule set into an immutable query
// structure that answers which instruction applies to a given file
// operation or directory enumeration.
package director

import (
	"github.com/cbarrett/redirectfs/directoryqueue"
	"github.com/cbarrett/redirectfs/redirectrule"
)

// FilesToTry selects which candidate path(s) the Executor should attempt,
// and in what order.
type FilesToTry int

const (
	UnredirectedOnly FilesToTry = iota
	UnredirectedFirst
	RedirectedFirst
	RedirectedOnly
)

// CreateDispositionPreference nudges the Executor's candidate-disposition
// table to avoid creating a shadow file when the caller only
// wanted to open an existing one, and vice versa.
type CreateDispositionPreference int

const (
	NoDispositionPreference CreateDispositionPreference = iota
	PreferCreateNewFile
	PreferOpenExistingFile
)

// NameAssociation selects which name gets stored as a handle's associated
// path after a successful operation.
type NameAssociation int

const (
	AssociateNone NameAssociation = iota
	AssociateWhicheverSucceeded
	AssociateUnredirected
	AssociateRedirected
)

// PreOperation is a bit in the preOperations bitset. Currently
// only one auxiliary action is defined.
type PreOperation uint32

const (
	EnsurePathHierarchyExists PreOperation = 1 << iota
)

// Has reports whether bitset contains op.
func (bitset PreOperation) Has(op PreOperation) bool { return bitset&op != 0 }

// FileOperationInstruction is the immutable plan the Director returns for a
// single file-operation request. It is a plain, comparable record: the
// zero value is the distinguished NoRedirectionOrInterception instruction,
// so the Executor's fast-path check is just ==.
type FileOperationInstruction struct {
	RedirectedFilename          string // empty means "absent" (no rewrite applies)
	FilesToTry                  FilesToTry
	CreateDispositionPreference CreateDispositionPreference
	AssociateNameWithHandle     NameAssociation
	PreOperations               PreOperation
	PreOperationOperand         string
}

// NoRedirectionOrInterception is the distinguished zero-value instruction
// that short-circuits the Executor to a pure pass-through.
var NoRedirectionOrInterception = FileOperationInstruction{FilesToTry: UnredirectedOnly}

// IsNoRedirectionOrInterception reports whether instr is the distinguished
// pass-through value.
func (instr FileOperationInstruction) IsNoRedirectionOrInterception() bool {
	return instr == NoRedirectionOrInterception
}

// DirectoryPathSource identifies which of a handle's two paths a directory
// enumeration source reads from.
type DirectoryPathSource int

const (
	SourceAssociatedPath DirectoryPathSource = iota
	SourceRealOpenedPath
)

// EnumerationSource is one directory to merge into an enumeration, together
// with the filter that applies to names read from it.
type EnumerationSource struct {
	Path   DirectoryPathSource
	Policy directoryqueue.FilterPolicy
	// Rule is the rule whose patterns the Policy is relative to; nil when
	// Policy is IncludeAll.
	Rule *redirectrule.Rule
}

// DirectoryEnumerationInstructionKind discriminates the sum-of-shapes
// DirectoryEnumerationInstruction describes.
type DirectoryEnumerationInstructionKind int

const (
	// PassThrough: enumerate the native directory unmodified.
	PassThrough DirectoryEnumerationInstructionKind = iota
	// Enumerate: merge one or more real directories.
	Enumerate
	// InsertNames: synthesize directory names from rule data.
	InsertNames
	// EnumerateAndInsertNames: both of the above, merged.
	EnumerateAndInsertNames
)

// DirectoryEnumerationInstruction is the immutable plan the Director
// returns for a directory-enumeration request.
type DirectoryEnumerationInstruction struct {
	Kind             DirectoryEnumerationInstructionKind
	EnumerateSources []EnumerationSource
	SyntheticNames   []directoryqueue.SyntheticName
}

// PassThroughInstruction is the distinguished instruction for a directory
// that has no relationship to any rule.
var PassThroughInstruction = DirectoryEnumerationInstruction{Kind: PassThrough}

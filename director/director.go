package director

import (
	"strings"

	"github.com/cbarrett/redirectfs/directoryqueue"
	"github.com/cbarrett/redirectfs/ntfileapi"
	"github.com/cbarrett/redirectfs/prefixindex"
	"github.com/cbarrett/redirectfs/redirectrule"
	"github.com/cbarrett/redirectfs/winpath"
)

// FilesystemProbe is the narrow real-filesystem surface the Director and
// compiler need, injected so both remain testable without touching a real
// disk.
type FilesystemProbe interface {
	// DirectoryExists reports whether path exists as a directory.
	DirectoryExists(path string) bool
	// Exists reports whether path exists at all (any type).
	Exists(path string) bool
}

// Director is the immutable, compiled rule set. Construct with Compile;
// the zero value is not usable.
type Director struct {
	rulesByName   map[string]*redirectrule.Rule   // keyed upper-case
	rulesByOrigin map[string][]*redirectrule.Rule // keyed upper-case origin path
	allRules      []*redirectrule.Rule

	originIndex *prefixindex.Index[[]*redirectrule.Rule]
	targetIndex *prefixindex.Index[[]*redirectrule.Rule]

	probe    FilesystemProbe
	Teardown *TeardownSet
}

// Rules returns every compiled rule, in no particular order. Callers must
// not mutate the returned slice; it aliases the Director's own storage.
func (d *Director) Rules() []*redirectrule.Rule { return d.allRules }

// FindRuleByName performs an exact, case-insensitive lookup by rule name.
func (d *Director) FindRuleByName(name string) (*redirectrule.Rule, bool) {
	r, ok := d.rulesByName[strings.ToUpper(name)]
	return r, ok
}

// FindRuleByOrigin performs an exact lookup for a rule whose origin is
// path, returning any one of the rules sharing that origin if more than
// one does.
func (d *Director) FindRuleByOrigin(path string) (*redirectrule.Rule, bool) {
	bucket, ok := d.rulesByOrigin[strings.ToUpper(path)]
	if !ok || len(bucket) == 0 {
		return nil, false
	}
	return bucket[0], true
}

// SelectRuleForPath finds the deepest origin prefix containing path, then
// among rules sharing that origin picks the first whose pattern set
// matches the immediate child of origin. A path exactly equal to an origin
// always matches, regardless of pattern.
func (d *Director) SelectRuleForPath(path string) *redirectrule.Rule {
	bucket, ok := d.originIndex.LongestMatchingPrefix(path)
	if !ok {
		return nil
	}

	for _, r := range bucket {
		switch r.CompareWithOrigin(path) {
		case redirectrule.Equal:
			return r
		case redirectrule.CandidateIsChild, redirectrule.CandidateIsDescendant:
			remainder, _ := winpath.TrimPrefixFold(path, r.OriginDirectory())
			immediate := winpath.Split(remainder)[0]
			if r.FileNameMatchesAnyPattern(immediate) {
				return r
			}
		}
	}
	return nil
}

// InstructionForFileOperation answers "which instruction for this file
// operation?".
func (d *Director) InstructionForFileOperation(
	absoluteFilePath string,
	access ntfileapi.FileAccessMode,
	disposition ntfileapi.CreateDisposition,
) FileOperationInstruction {
	// Targets are already the "real" locations.
	if _, ok := d.targetIndex.LongestMatchingPrefix(absoluteFilePath); ok {
		return FileOperationInstruction{FilesToTry: UnredirectedOnly}
	}

	rule := d.SelectRuleForPath(absoluteFilePath)
	if rule == nil {
		if !d.originIndex.HasAnyDescendantOrSelfWithData(absoluteFilePath) {
			return NoRedirectionOrInterception
		}
		// An ancestor of some rule's origin: no rewrite applies, but the
		// handle must still be cached so a later enumeration can insert
		// synthetic names for virtual origins below it. The association
		// field also keeps this instruction distinct from the pass-through
		// sentinel under structural equality.
		return FileOperationInstruction{
			FilesToTry:              UnredirectedOnly,
			AssociateNameWithHandle: AssociateWhicheverSucceeded,
		}
	}

	// Opening the origin directory itself redirects whole; anything below
	// it splits into directory and file parts for the rewrite.
	var redirected string
	var ok bool
	if rule.CompareWithOrigin(absoluteFilePath) == redirectrule.Equal {
		redirected, ok = rule.RedirectOriginToTarget(absoluteFilePath, "")
	} else {
		redirected, ok = rule.RedirectOriginToTarget(winpath.Dir(absoluteFilePath), winpath.Base(absoluteFilePath))
	}
	if !ok {
		return FileOperationInstruction{FilesToTry: UnredirectedOnly}
	}

	instr := FileOperationInstruction{
		RedirectedFilename:      redirected,
		AssociateNameWithHandle: AssociateUnredirected,
	}

	if rule.RedirectMode() == redirectrule.Overlay {
		instr.FilesToTry = RedirectedFirst
	} else {
		instr.FilesToTry = RedirectedOnly
	}

	switch disposition {
	case ntfileapi.CreateNewFile:
		instr.CreateDispositionPreference = PreferCreateNewFile
	case ntfileapi.OpenExistingFile:
		instr.CreateDispositionPreference = PreferOpenExistingFile
	default:
		instr.CreateDispositionPreference = NoDispositionPreference
	}

	if d.probe == nil || !d.probe.DirectoryExists(winpath.Dir(redirected)) {
		instr.PreOperations |= EnsurePathHierarchyExists
		instr.PreOperationOperand = winpath.Dir(redirected)
	}

	return instr
}

// InstructionForDirectoryEnumeration answers "which instruction for this
// directory enumeration?".
func (d *Director) InstructionForDirectoryEnumeration(associatedPath, realOpenedPath string) DirectoryEnumerationInstruction {
	rule := d.SelectRuleForPath(associatedPath)
	if rule == nil && !d.originIndex.HasAnyDescendantOrSelfWithData(associatedPath) {
		return PassThroughInstruction
	}

	var sources []EnumerationSource
	var synthetic []directoryqueue.SyntheticName

	if rule != nil {
		if d.probe != nil && d.probe.DirectoryExists(realOpenedPath) {
			sources = append(sources,
				EnumerationSource{Path: SourceAssociatedPath, Policy: directoryqueue.IncludeAllExceptMatching, Rule: rule},
				EnumerationSource{Path: SourceRealOpenedPath, Policy: directoryqueue.IncludeAll},
			)
		} else {
			synthetic = append(synthetic, directoryqueue.SyntheticName{Name: winpath.Base(rule.OriginDirectory())})
		}
	}

	for _, child := range d.immediateOriginChildren(associatedPath, rule) {
		if d.probe == nil || !d.probe.DirectoryExists(child.OriginDirectory()) {
			synthetic = append(synthetic, directoryqueue.SyntheticName{Name: winpath.Base(child.OriginDirectory())})
		}
	}

	// A plain ancestor directory keeps its real contents alongside any
	// synthetic names inserted for virtual origins below it.
	if rule == nil && len(synthetic) > 0 && d.probe != nil && d.probe.DirectoryExists(realOpenedPath) {
		sources = append(sources, EnumerationSource{Path: SourceRealOpenedPath, Policy: directoryqueue.IncludeAll})
	}

	switch {
	case len(sources) > 0 && len(synthetic) > 0:
		return DirectoryEnumerationInstruction{Kind: EnumerateAndInsertNames, EnumerateSources: sources, SyntheticNames: synthetic}
	case len(sources) > 0:
		return DirectoryEnumerationInstruction{Kind: Enumerate, EnumerateSources: sources}
	case len(synthetic) > 0:
		return DirectoryEnumerationInstruction{Kind: InsertNames, SyntheticNames: synthetic}
	default:
		return PassThroughInstruction
	}
}

// immediateOriginChildren returns every rule (other than skip, already
// handled by the caller) whose origin directory is an immediate child of
// dir, for synthesizing virtual subdirectory names during enumeration.
func (d *Director) immediateOriginChildren(dir string, skip *redirectrule.Rule) []*redirectrule.Rule {
	var out []*redirectrule.Rule
	for _, r := range d.allRules {
		if r == skip {
			continue
		}
		if r.CompareWithOrigin(dir) == redirectrule.CandidateIsParent {
			out = append(out, r)
		}
	}
	return out
}

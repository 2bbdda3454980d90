// Package redirectrule implements Rule, an immutable record describing a
// single redirection, and the comparison and path-rewriting logic that
// operates on it.
package redirectrule

import (
	"strings"

	"github.com/cbarrett/redirectfs/winpath"
)

// RedirectMode selects whether a redirected path is used exclusively
// (Simple) or preferred with a fallback to the origin (Overlay)
type RedirectMode int

const (
	Simple RedirectMode = iota
	Overlay
)

func (m RedirectMode) String() string {
	if m == Overlay {
		return "Overlay"
	}
	return "Simple"
}

// ParseRedirectMode maps the configured keyword to a RedirectMode.
// An unrecognized keyword returns ok=false so the compiler can report an
// "invalid redirect-mode keyword" error naming the rule.
func ParseRedirectMode(keyword string) (mode RedirectMode, ok bool) {
	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case "", "simple":
		return Simple, true
	case "overlay":
		return Overlay, true
	default:
		return 0, false
	}
}

// RelativeLocation classifies how a candidate directory relates to a rule's
// origin or target directory.
type RelativeLocation int

const (
	Unrelated RelativeLocation = iota
	Equal
	CandidateIsParent
	CandidateIsAncestor
	CandidateIsChild
	CandidateIsDescendant
)

// Rule is an immutable redirection record. Construct with New;
// all fields are unexported so that the invariants New enforces (uppercased
// patterns) cannot be bypassed after construction.
type Rule struct {
	name            string
	originDirectory string
	targetDirectory string
	filePatterns    []string // uppercased at construction
	redirectMode    RedirectMode
}

// New constructs a Rule. origin and target must already be validated,
// normalized absolute paths (director.Compile is responsible for that); New
// itself only uppercases the supplied patterns, an implementation detail
// of the match function.
func New(name, originDirectory, targetDirectory string, filePatterns []string, mode RedirectMode) *Rule {
	upper := make([]string, len(filePatterns))
	for i, p := range filePatterns {
		upper[i] = strings.ToUpper(p)
	}
	return &Rule{
		name:            name,
		originDirectory: originDirectory,
		targetDirectory: targetDirectory,
		filePatterns:    upper,
		redirectMode:    mode,
	}
}

func (r *Rule) Name() string            { return r.name }
func (r *Rule) OriginDirectory() string { return r.originDirectory }
func (r *Rule) TargetDirectory() string { return r.targetDirectory }
func (r *Rule) RedirectMode() RedirectMode { return r.redirectMode }

// FilePatterns returns the rule's (already-uppercased) pattern list. Callers
// must not mutate the returned slice.
func (r *Rule) FilePatterns() []string { return r.filePatterns }

// FileNameMatchesAnyPattern reports whether name (a single filename, no
// separators) matches the rule's pattern set: true if the pattern set is
// empty, or if the filename matches any pattern in it.
func (r *Rule) FileNameMatchesAnyPattern(name string) bool {
	if len(r.filePatterns) == 0 {
		return true
	}
	upperName := strings.ToUpper(name)
	for _, p := range r.filePatterns {
		if wildcardMatch(p, upperName) {
			return true
		}
	}
	return false
}

// compareWith classifies candidateDir's relationship to dir by counting
// path components: one component away means parent/child, more means
// ancestor/descendant.
func compareWith(dir, candidateDir string) RelativeLocation {
	// A drive root may carry a trailing separator ("C:\"); drop it so the
	// component-boundary checks below see "C:".
	dir = strings.TrimSuffix(dir, `\`)
	candidateDir = strings.TrimSuffix(candidateDir, `\`)

	if winpath.EqualFold(dir, candidateDir) {
		return Equal
	}

	if remainder, ok := winpath.TrimPrefixFold(candidateDir, dir); ok {
		// candidateDir is dir plus remainder: candidateDir is below dir.
		n := len(winpath.Split(remainder))
		if n == 1 {
			return CandidateIsChild
		}
		return CandidateIsDescendant
	}

	if remainder, ok := winpath.TrimPrefixFold(dir, candidateDir); ok {
		// dir is candidateDir plus remainder: candidateDir is above dir.
		n := len(winpath.Split(remainder))
		if n == 1 {
			return CandidateIsParent
		}
		return CandidateIsAncestor
	}

	return Unrelated
}

// CompareWithOrigin classifies candidateDir's relationship to the rule's
// origin directory.
func (r *Rule) CompareWithOrigin(candidateDir string) RelativeLocation {
	return compareWith(r.originDirectory, candidateDir)
}

// CompareWithTarget classifies candidateDir's relationship to the rule's
// target directory.
func (r *Rule) CompareWithTarget(candidateDir string) RelativeLocation {
	return compareWith(r.targetDirectory, candidateDir)
}

// redirect implements the shared shape of RedirectOriginToTarget and
// RedirectTargetToOrigin: given the directory part of a
// candidate path and the (possibly empty) file part, rewrite across the
// from→to boundary if the candidate is at or below from and the relevant
// path component matches the rule's patterns.
func (r *Rule) redirect(from, to, candidateDir, file string) (result string, ok bool) {
	switch compareWith(from, candidateDir) {
	case Equal:
		if file != "" && !r.FileNameMatchesAnyPattern(file) {
			return "", false
		}
		if file == "" {
			return to, true
		}
		return to + `\` + file, true

	case CandidateIsChild, CandidateIsDescendant:
		remainder, _ := winpath.TrimPrefixFold(candidateDir, from)
		components := winpath.Split(remainder)
		immediateSubdir := components[0]
		if !r.FileNameMatchesAnyPattern(immediateSubdir) {
			return "", false
		}
		if file == "" {
			return to + `\` + remainder, true
		}
		return to + `\` + remainder + `\` + file, true

	default:
		return "", false
	}
}

// RedirectOriginToTarget rewrites a path rooted at the rule's origin into
// the equivalent path rooted at the rule's target.
func (r *Rule) RedirectOriginToTarget(candidateDir, file string) (string, bool) {
	return r.redirect(r.originDirectory, r.targetDirectory, candidateDir, file)
}

// RedirectTargetToOrigin is the reverse of RedirectOriginToTarget: the
// reverse direction follows the same shape, with origin and target
// swapped.
func (r *Rule) RedirectTargetToOrigin(candidateDir, file string) (string, bool) {
	return r.redirect(r.targetDirectory, r.originDirectory, candidateDir, file)
}

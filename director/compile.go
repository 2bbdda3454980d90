// Rule Compiler: ingests a declarative section map, validates
// mutual constraints, auto-generates intermediate "parent" rules where
// needed, and emits an immutable Director.
package director

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/cbarrett/redirectfs/prefixindex"
	"github.com/cbarrett/redirectfs/redirectrule"
	"github.com/cbarrett/redirectfs/ruleconfig"
	"github.com/cbarrett/redirectfs/winpath"
)

// MaxRulesPerOrigin is the bound on same-origin rule duplication: an origin
// directory may be shared by only a small, fixed number of rules.
const MaxRulesPerOrigin = 3

// CompileError is one diagnostic from Compile, always naming the offending
// rule.
type CompileError struct {
	RuleName string
	Message  string
}

func (e CompileError) Error() string {
	if e.RuleName == "" {
		return e.Message
	}
	return fmt.Sprintf("rule %q: %s", e.RuleName, e.Message)
}

// TempDirFactory allocates a fresh, uniquely named temporary directory for
// an auto-generated parent rule's target. Tests substitute a
// fake; production code uses NewOSTempDirFactory.
type TempDirFactory func() (string, error)

// NewOSTempDirFactory returns a TempDirFactory that creates real
// directories under the user's temp area.
func NewOSTempDirFactory() TempDirFactory {
	return func() (string, error) {
		return os.MkdirTemp("", "redirectfs-")
	}
}

type compiledRule struct {
	name            string
	originDirectory string
	targetDirectory string
	filePatterns    []string
	mode            redirectrule.RedirectMode
	autoGenerated   bool
}

// Compile builds a Director from sections. probe and tempDirs may be nil in
// tests that do not exercise filesystem-dependent validation or
// auto-generated parent rules; production callers should supply both.
func Compile(
	sections ruleconfig.SectionMap,
	resolver ruleconfig.VariableResolver,
	probe FilesystemProbe,
	tempDirs TempDirFactory,
) (*Director, []CompileError) {
	var errs []CompileError

	names := make([]string, 0, len(sections.Rules))
	for name := range sections.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]compiledRule, 0, len(names))
	for _, name := range names {
		section := sections.Rules[name]
		cr, ruleErrs := compileOneRule(name, section, resolver)
		errs = append(errs, ruleErrs...)
		if len(ruleErrs) == 0 {
			rules = append(rules, cr)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	teardown := NewTeardownSet()

	if probe != nil && tempDirs != nil {
		generated, genErrs := autoGenerateParentRules(rules, probe, tempDirs, teardown)
		errs = append(errs, genErrs...)
		if len(errs) > 0 {
			return nil, errs
		}
		rules = generated
	}

	crossErrs := validateCrossRuleConstraints(rules)
	errs = append(errs, crossErrs...)
	if probe != nil {
		errs = append(errs, validateFilesystemState(rules, probe)...)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	d := &Director{
		rulesByName:   map[string]*redirectrule.Rule{},
		rulesByOrigin: map[string][]*redirectrule.Rule{},
		originIndex:   prefixindex.New[[]*redirectrule.Rule](),
		targetIndex:   prefixindex.New[[]*redirectrule.Rule](),
		probe:         probe,
		Teardown:      teardown,
	}

	for _, cr := range rules {
		r := redirectrule.New(cr.name, cr.originDirectory, cr.targetDirectory, cr.filePatterns, cr.mode)
		d.allRules = append(d.allRules, r)
		d.rulesByName[strings.ToUpper(cr.name)] = r

		key := strings.ToUpper(cr.originDirectory)
		d.rulesByOrigin[key] = append(d.rulesByOrigin[key], r)
	}

	for origin, bucket := range d.rulesByOrigin {
		_ = d.originIndex.Insert(origin, bucket)
	}
	for _, r := range d.allRules {
		key := r.TargetDirectory()
		existing, _ := d.targetIndex.Find(key)
		d.targetIndex.Erase(key)
		_ = d.targetIndex.Insert(key, append(existing, r))
	}

	return d, nil
}

func compileOneRule(name string, section ruleconfig.RuleSection, resolver ruleconfig.VariableResolver) (compiledRule, []CompileError) {
	var errs []CompileError

	if section.OriginDirectory == "" {
		errs = append(errs, CompileError{name, "missing origin directory"})
	}
	if section.TargetDirectory == "" {
		errs = append(errs, CompileError{name, "missing target directory"})
	}

	mode, ok := redirectrule.ParseRedirectMode(section.RedirectMode)
	if !ok {
		errs = append(errs, CompileError{name, fmt.Sprintf("invalid redirect-mode keyword %q", section.RedirectMode)})
	}

	if len(errs) > 0 {
		return compiledRule{}, errs
	}

	origin, originErrs := validateDirectoryString(name, "origin", section.OriginDirectory, resolver)
	target, targetErrs := validateDirectoryString(name, "target", section.TargetDirectory, resolver)
	errs = append(errs, originErrs...)
	errs = append(errs, targetErrs...)
	if len(errs) > 0 {
		return compiledRule{}, errs
	}

	return compiledRule{
		name:            name,
		originDirectory: origin,
		targetDirectory: target,
		filePatterns:    section.FilePattern,
		mode:            mode,
	}, nil
}

// validateDirectoryString implements per-rule validation steps
// 1-4 (minus the cross-rule and filesystem checks, done later) for one of a
// rule's two directory strings.
func validateDirectoryString(ruleName, role, raw string, resolver ruleconfig.VariableResolver) (string, []CompileError) {
	var errs []CompileError

	resolved, err := ruleconfig.ResolveReferences(raw, resolver)
	if err != nil {
		return "", []CompileError{{ruleName, fmt.Sprintf("%s directory: %v", role, err)}}
	}

	if resolved == "" {
		errs = append(errs, CompileError{ruleName, fmt.Sprintf("%s directory is empty", role)})
		return "", errs
	}

	if !winpath.HasDriveLetterPrefix(resolved) {
		errs = append(errs, CompileError{ruleName, fmt.Sprintf("%s directory %q has no drive-letter prefix", role, resolved)})
	}
	if winpath.HasDisallowedChar(resolved) {
		errs = append(errs, CompileError{ruleName, fmt.Sprintf("%s directory %q contains a disallowed character", role, resolved)})
	}
	if winpath.HasDoubleBackslash(resolved) {
		errs = append(errs, CompileError{ruleName, fmt.Sprintf("%s directory %q contains a doubled path separator", role, resolved)})
	}
	if len(errs) > 0 {
		return "", errs
	}

	normalized, ok := winpath.Normalize(resolved)
	if !ok {
		return "", []CompileError{{ruleName, fmt.Sprintf("%s directory %q escapes its root via \"..\"", role, resolved)}}
	}

	if winpath.HasDotOnlyComponent(normalized) {
		errs = append(errs, CompileError{ruleName, fmt.Sprintf("%s directory %q has a dot-only path component", role, normalized)})
	}
	if winpath.IsRoot(normalized) {
		errs = append(errs, CompileError{ruleName, fmt.Sprintf("%s directory %q is a filesystem root", role, normalized)})
	}
	if len(errs) > 0 {
		return "", errs
	}

	return normalized, nil
}

// validateCrossRuleConstraints implements rule-set-wide
// collision checks: an origin may not equal any existing target; a target
// may not equal any existing origin or target; same-origin duplication is
// bounded.
func validateCrossRuleConstraints(rules []compiledRule) []CompileError {
	var errs []CompileError

	origins := map[string][]string{} // upper(origin) -> rule names
	targets := map[string][]string{}

	for _, r := range rules {
		origins[strings.ToUpper(r.originDirectory)] = append(origins[strings.ToUpper(r.originDirectory)], r.name)
		targets[strings.ToUpper(r.targetDirectory)] = append(targets[strings.ToUpper(r.targetDirectory)], r.name)
	}

	for key, names := range origins {
		if len(names) > MaxRulesPerOrigin {
			errs = append(errs, CompileError{names[len(names)-1],
				fmt.Sprintf("origin directory %q is shared by more than %d rules", key, MaxRulesPerOrigin)})
		}
	}

	for _, r := range rules {
		upperOrigin := strings.ToUpper(r.originDirectory)
		upperTarget := strings.ToUpper(r.targetDirectory)

		if names, ok := targets[upperOrigin]; ok {
			errs = append(errs, CompileError{r.name,
				fmt.Sprintf("origin directory %q is also used as a target by rule(s) %v", r.originDirectory, names)})
		}

		if names, ok := origins[upperTarget]; ok {
			errs = append(errs, CompileError{r.name,
				fmt.Sprintf("target directory %q is also used as an origin by rule(s) %v", r.targetDirectory, names)})
		}
		if names, ok := targets[upperTarget]; ok && len(names) > 0 {
			for _, other := range names {
				if other != r.name {
					errs = append(errs, CompileError{r.name,
						fmt.Sprintf("target directory %q collides with target of rule %q", r.targetDirectory, other)})
				}
			}
		}
	}

	// No target may be a descendant of any origin or target. Exact
	// collisions are already reported above, so only strict ancestors of
	// each target are checked: walking from the target's parent upward via
	// the prefix index finds the deepest origin or target above it, if any.
	idx := prefixindex.New[string]()
	for _, r := range rules {
		_ = idx.Insert(r.originDirectory, fmt.Sprintf("origin of rule %q", r.name))
	}
	for _, r := range rules {
		_ = idx.Insert(r.targetDirectory, fmt.Sprintf("target of rule %q", r.name))
	}
	for _, r := range rules {
		if owner, ok := idx.LongestMatchingPrefix(winpath.Dir(r.targetDirectory)); ok {
			errs = append(errs, CompileError{r.name,
				fmt.Sprintf("target directory %q is a descendant of the %s", r.targetDirectory, owner)})
		}
	}

	return errs
}

// validateFilesystemState checks that each rule's origin either does not
// exist yet or already exists as a directory.
func validateFilesystemState(rules []compiledRule, probe FilesystemProbe) []CompileError {
	var errs []CompileError
	for _, r := range rules {
		if probe.Exists(r.originDirectory) && !probe.DirectoryExists(r.originDirectory) {
			errs = append(errs, CompileError{r.name,
				fmt.Sprintf("origin directory %q exists but is not a directory", r.originDirectory)})
		}
	}
	return errs
}

// autoGenerateParentRules implements fixed-point algorithm: if
// an origin's parent directory does not exist and no other rule has that
// parent as its origin, synthesize a rule whose origin is the missing
// parent and whose target is a fresh temporary directory, then re-run until
// no further generation is needed.
func autoGenerateParentRules(rules []compiledRule, probe FilesystemProbe, tempDirs TempDirFactory, teardown *TeardownSet) ([]compiledRule, []CompileError) {
	current := append([]compiledRule(nil), rules...)

	for iteration := 0; iteration < 64; iteration++ {
		origins := map[string]bool{}
		for _, r := range current {
			origins[strings.ToUpper(r.originDirectory)] = true
		}

		var toAdd []compiledRule
		seenThisPass := map[string]bool{}

		for _, r := range current {
			parent := winpath.Dir(r.originDirectory)
			if winpath.IsRoot(r.originDirectory) || parent == "" {
				continue
			}
			if probe.Exists(parent) {
				continue
			}
			key := strings.ToUpper(parent)
			if origins[key] || seenThisPass[key] {
				continue
			}

			tempDir, err := tempDirs()
			if err != nil {
				return nil, []CompileError{{r.name, fmt.Sprintf("allocating temporary directory for auto-generated parent rule: %v", err)}}
			}
			seenThisPass[key] = true
			toAdd = append(toAdd, compiledRule{
				name:            fmt.Sprintf("%s#parent#%s", r.name, winpath.Base(parent)),
				originDirectory: parent,
				targetDirectory: tempDir,
				mode:            redirectrule.Simple,
				autoGenerated:   true,
			})
			teardown.Add(tempDir)
		}

		if len(toAdd) == 0 {
			return current, nil
		}
		current = append(current, toAdd...)
	}

	return nil, []CompileError{{"", "auto-generated-parent-rule fixed point did not converge"}}
}

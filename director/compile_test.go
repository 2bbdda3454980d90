package director_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cbarrett/redirectfs/director"
	"github.com/cbarrett/redirectfs/ruleconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProbe is a FilesystemProbe backed by in-memory sets, so compiler
// tests never touch a real disk.
type fakeProbe struct {
	dirs  map[string]bool // upper-cased path -> is a directory
	files map[string]bool // upper-cased path -> exists but is not a directory
}

func newFakeProbe(dirs ...string) *fakeProbe {
	p := &fakeProbe{dirs: map[string]bool{}, files: map[string]bool{}}
	for _, d := range dirs {
		p.dirs[strings.ToUpper(d)] = true
	}
	return p
}

func (p *fakeProbe) DirectoryExists(path string) bool { return p.dirs[strings.ToUpper(path)] }
func (p *fakeProbe) Exists(path string) bool {
	up := strings.ToUpper(path)
	return p.dirs[up] || p.files[up]
}

// sequentialTempDirs hands out distinct, deterministic paths instead of
// touching the real filesystem the way director.NewOSTempDirFactory does.
func sequentialTempDirs() director.TempDirFactory {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf(`E:\Temp\gen%d`, n), nil
	}
}

func ruleSection(origin, target, mode string, patterns ...string) ruleconfig.RuleSection {
	return ruleconfig.RuleSection{OriginDirectory: origin, TargetDirectory: target, RedirectMode: mode, FilePattern: patterns}
}

func TestCompileValidRuleSetRecognizesEveryOriginAndTarget(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"R": ruleSection(`C:\Game\Saves`, `D:\Mods\Saves`, "Overlay"),
	}}
	probe := newFakeProbe(`C:\Game`, `D:\Mods`)

	d, errs := director.Compile(sections, nil, probe, sequentialTempDirs())
	require.Empty(t, errs)
	require.NotNil(t, d)

	r, ok := d.FindRuleByName("R")
	require.True(t, ok)
	assert.Equal(t, `C:\Game\Saves`, r.OriginDirectory())
	assert.Equal(t, `D:\Mods\Saves`, r.TargetDirectory())

	_, ok = d.FindRuleByOrigin(`C:\Game\Saves`)
	assert.True(t, ok)
}

func TestCompileOriginTargetCycleNamesBothRules(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"A": ruleSection(`C:\A`, `D:\B`, "Simple"),
		"B": ruleSection(`D:\B`, `C:\A`, "Simple"),
	}}
	probe := newFakeProbe(`C:`, `D:`)

	d, errs := director.Compile(sections, nil, probe, sequentialTempDirs())
	require.Nil(t, d)
	require.NotEmpty(t, errs)

	var sawA, sawB bool
	for _, e := range errs {
		msg := e.Error()
		if strings.Contains(msg, `rule "A"`) {
			sawA = true
		}
		if strings.Contains(msg, `rule "B"`) {
			sawB = true
		}
		assert.True(t, strings.Contains(msg, "A") && strings.Contains(msg, "B"),
			"each cycle diagnostic should name both participants: %s", msg)
	}
	assert.True(t, sawA, "expected at least one error naming rule A")
	assert.True(t, sawB, "expected at least one error naming rule B")
}

func TestCompileTargetDescendantOfOriginNamesBothRules(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"Outer": ruleSection(`C:\A`, `D:\B`, "Simple"),
		"Inner": ruleSection(`C:\X`, `C:\A\Nested`, "Simple"),
	}}
	probe := newFakeProbe(`C:`, `D:`)

	d, errs := director.Compile(sections, nil, probe, sequentialTempDirs())
	require.Nil(t, d)
	require.NotEmpty(t, errs)

	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "descendant") {
			found = true
			assert.Contains(t, e.Error(), "Inner")
			assert.Contains(t, e.Error(), "Outer")
		}
	}
	assert.True(t, found, "expected a descendant-of-origin diagnostic naming both rules")
}

func TestCompileAutoGeneratesParentRuleFixedPointArbitraryDepth(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"R": ruleSection(`C:\Missing\Level1\Level2\Level3\Here`, `E:\Target`, "Simple"),
	}}
	// Only the drive root exists; four ancestor levels of the origin are
	// missing and must each get an auto-generated rule before the build
	// reaches a fixed point.
	probe := newFakeProbe(`C:`, `E:`)

	d, errs := director.Compile(sections, nil, probe, sequentialTempDirs())
	require.Empty(t, errs)
	require.NotNil(t, d)

	wantGeneratedOrigins := []string{
		`C:\Missing\Level1\Level2\Level3`,
		`C:\Missing\Level1\Level2`,
		`C:\Missing\Level1`,
		`C:\Missing`,
	}
	for _, origin := range wantGeneratedOrigins {
		_, ok := d.FindRuleByOrigin(origin)
		assert.Truef(t, ok, "expected an auto-generated rule with origin %q", origin)
	}
	// R itself plus one auto-generated rule per missing ancestor.
	assert.Len(t, d.Rules(), 1+len(wantGeneratedOrigins))

	teardown := d.Teardown.Paths()
	assert.Len(t, teardown, len(wantGeneratedOrigins))
	seen := map[string]bool{}
	for _, p := range teardown {
		assert.False(t, seen[p], "auto-generated target %q reused across rules", p)
		seen[p] = true
	}
}

func TestCompileAutoGeneratedParentStopsAtExistingAncestor(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"R": ruleSection(`C:\Missing\Here`, `E:\Target`, "Simple"),
	}}
	probe := newFakeProbe(`C:`, `E:`)

	d, errs := director.Compile(sections, nil, probe, sequentialTempDirs())
	require.Empty(t, errs)
	require.NotNil(t, d)

	_, ok := d.FindRuleByOrigin(`C:\Missing`)
	assert.True(t, ok)
	assert.Len(t, d.Rules(), 2)
}

func TestCompileRelativePathComponentsNormalizedToCanonicalForm(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"R": ruleSection(`C:\Game\.\Saves\..\Saves`, `D:\Mods\Saves`, "Simple"),
	}}
	probe := newFakeProbe(`C:\Game`, `D:\Mods`)

	d, errs := director.Compile(sections, nil, probe, sequentialTempDirs())
	require.Empty(t, errs)
	require.NotNil(t, d)

	r, ok := d.FindRuleByName("R")
	require.True(t, ok)
	assert.Equal(t, `C:\Game\Saves`, r.OriginDirectory())
}

func TestCompileEscapingDotDotIsRejected(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"R": ruleSection(`C:\..\..\Escape`, `D:\Mods`, "Simple"),
	}}
	probe := newFakeProbe(`C:`, `D:`)

	d, errs := director.Compile(sections, nil, probe, sequentialTempDirs())
	assert.Nil(t, d)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Error(), `rule "R"`)
}

func TestCompileMissingOriginAndTargetReportedTogether(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"R": {RedirectMode: "Simple"},
	}}
	d, errs := director.Compile(sections, nil, nil, nil)
	assert.Nil(t, d)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "missing origin directory")
	assert.Contains(t, errs[1].Error(), "missing target directory")
}

func TestCompileInvalidRedirectModeKeyword(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"R": ruleSection(`C:\A`, `D:\B`, "Bogus"),
	}}
	d, errs := director.Compile(sections, nil, nil, nil)
	assert.Nil(t, d)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "invalid redirect-mode keyword")
}

func TestCompileSameOriginBucketExceedsCapacity(t *testing.T) {
	sections := ruleconfig.SectionMap{Rules: map[string]ruleconfig.RuleSection{
		"A": ruleSection(`C:\Shared`, `D:\A`, "Simple"),
		"B": ruleSection(`C:\Shared`, `D:\B`, "Simple"),
		"C": ruleSection(`C:\Shared`, `D:\C`, "Simple"),
		"D": ruleSection(`C:\Shared`, `D:\D`, "Simple"),
	}}
	probe := newFakeProbe(`C:`, `D:`)

	d, errs := director.Compile(sections, nil, probe, sequentialTempDirs())
	assert.Nil(t, d)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "shared by more than") {
			found = true
		}
	}
	assert.True(t, found)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRuleFile = `
log-level: 2
definitions:
  gamedir: "C:\\Games\\MyGame"
rules:
  SaveRedirect:
    origin: "%CONF::gamedir%\\Saves"
    target: "D:\\Mods\\Saves"
    mode: Overlay
    patterns:
      - "*.sav"
`

func writeTempRuleFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadSectionMapDecodesRulesAndDefinitions(t *testing.T) {
	path := writeTempRuleFile(t, sampleRuleFile)

	sections, err := loadSectionMap(path)
	require.NoError(t, err)

	assert.Equal(t, 2, sections.LogLevel)
	assert.Equal(t, `C:\Games\MyGame`, sections.Definitions["gamedir"])

	require.Contains(t, sections.Rules, "SaveRedirect")
	rule := sections.Rules["SaveRedirect"]
	assert.Equal(t, `%CONF::gamedir%\Saves`, rule.OriginDirectory)
	assert.Equal(t, `D:\Mods\Saves`, rule.TargetDirectory)
	assert.Equal(t, "Overlay", rule.RedirectMode)
	assert.Equal(t, []string{"*.sav"}, rule.FilePattern)
}

func TestLoadSectionMapMissingFileReturnsError(t *testing.T) {
	_, err := loadSectionMap(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadSectionMapMalformedYAMLReturnsError(t *testing.T) {
	path := writeTempRuleFile(t, "rules: [this is not a map")
	_, err := loadSectionMap(path)
	assert.Error(t, err)
}

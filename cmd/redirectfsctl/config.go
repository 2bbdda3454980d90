package main

import (
	"fmt"
	"os"

	"github.com/cbarrett/redirectfs/ruleconfig"
	"gopkg.in/yaml.v3"
)

// ruleFile is the on-disk YAML shape redirectfsctl reads, mirroring
// ruleconfig.SectionMap/RuleSection field-for-field. Decoupling this from
// ruleconfig itself keeps the core package's contract free of a
// yaml-specific struct tag dependency.
type ruleFile struct {
	LogLevel    int                    `yaml:"log-level"`
	Definitions map[string]string      `yaml:"definitions"`
	Rules       map[string]ruleSection `yaml:"rules"`
}

type ruleSection struct {
	OriginDirectory string   `yaml:"origin"`
	TargetDirectory string   `yaml:"target"`
	RedirectMode    string   `yaml:"mode"`
	FilePattern     []string `yaml:"patterns"`
}

// loadSectionMap reads and decodes path into a ruleconfig.SectionMap, the
// shape the Rule Compiler consumes. redirectfsctl is the external
// collaborator ruleconfig's own doc comment names for this job.
func loadSectionMap(path string) (ruleconfig.SectionMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ruleconfig.SectionMap{}, fmt.Errorf("reading rule file: %w", err)
	}

	var raw ruleFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return ruleconfig.SectionMap{}, fmt.Errorf("parsing rule file: %w", err)
	}

	sections := ruleconfig.SectionMap{
		LogLevel:    raw.LogLevel,
		Definitions: raw.Definitions,
		Rules:       make(map[string]ruleconfig.RuleSection, len(raw.Rules)),
	}
	for name, s := range raw.Rules {
		sections.Rules[name] = ruleconfig.RuleSection{
			OriginDirectory: s.OriginDirectory,
			TargetDirectory: s.TargetDirectory,
			RedirectMode:    s.RedirectMode,
			FilePattern:     s.FilePattern,
		}
	}
	return sections, nil
}

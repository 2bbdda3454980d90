package main

import "github.com/cbarrett/redirectfs/ruleconfig"

// newResolver builds the StandardResolver redirectfsctl hands to the Rule
// Compiler. FOLDERID resolution is platform-specific known-folder lookup
// (SHGetKnownFolderPath and friends on real Windows); this module has no
// such API to call, so it is left as ruleconfig.StandardResolver's own
// documented TODO hook and always reports unresolved.
func newResolver(definitions map[string]string) *ruleconfig.StandardResolver {
	return &ruleconfig.StandardResolver{
		Builtin:     map[string]string{},
		Definitions: definitions,
	}
}

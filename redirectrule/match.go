package redirectrule

import "strings"

// WildcardMatch implements the host's native filename-matching semantics
// for a single pattern against a single name, case-insensitively. It is
// exported so directoryqueue can apply an application-supplied query file
// pattern with the same matching rules the Rule type uses internally.
func WildcardMatch(pattern, name string) bool {
	return wildcardMatch(strings.ToUpper(pattern), strings.ToUpper(name))
}

// wildcardMatch implements the host's native filename-matching semantics:
// '*' and '?' as in FindFirstFile, case-insensitive. Both pattern and name
// are assumed already uppercased by the caller. This is a classic DOS/NT
// glob: '*' matches any run of characters (including none), '?' matches
// exactly one character.
//
// We deliberately do not reach for a third-party glob library here:
// packages like github.com/gobwas/glob implement POSIX/shell globbing,
// where '*' does not cross path separators and character classes like
// "[abc]" are supported. Neither matches FindFirstFile's simpler
// two-wildcard semantics, and a mismatched library would silently change
// match results at the edges.
func wildcardMatch(pattern, name string) bool {
	return matchFrom(pattern, name, 0, 0)
}

func matchFrom(pattern, name string, pi, ni int) bool {
	for pi < len(pattern) {
		switch pattern[pi] {
		case '*':
			// Collapse consecutive '*' to avoid redundant recursion.
			for pi < len(pattern) && pattern[pi] == '*' {
				pi++
			}
			if pi == len(pattern) {
				return true
			}
			for k := ni; k <= len(name); k++ {
				if matchFrom(pattern, name, pi, k) {
					return true
				}
			}
			return false

		case '?':
			if ni >= len(name) {
				return false
			}
			pi++
			ni++

		default:
			if ni >= len(name) || pattern[pi] != name[ni] {
				return false
			}
			pi++
			ni++
		}
	}

	return ni == len(name)
}

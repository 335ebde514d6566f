package rules

import (
	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/types"
)

// Secrets flags assignments whose right-hand side is a string literal with
// a credential-like key name, and any recognizable provider key prefix.
// Environment lookups on the same line are not hardcoded secrets.
func Secrets(lines []string, path string, ps *patternSet) []types.Violation {
	var out []types.Violation
	for i, line := range lines {
		if isCommentLine(line) {
			continue
		}
		if ps.envLookup.MatchString(line) {
			continue
		}
		switch {
		case ps.secretAssign.MatchString(line):
			out = append(out, newRegexViolation(
				controls.Secrets, types.SevCritical, path, i+1, line,
				"credential-named variable assigned a hardcoded string literal",
			))
		case ps.providerKey.MatchString(line):
			out = append(out, newRegexViolation(
				controls.Secrets, types.SevCritical, path, i+1, line,
				"string matches a known provider key format",
			))
		}
	}
	return out
}

package rules

import (
	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/types"
)

// AccessControl flags handler definitions that accept a request-like
// parameter without an auth annotation on the preceding lines or an auth
// reference on the definition line itself.
func AccessControl(lines []string, path string, ps *patternSet) []types.Violation {
	var out []types.Violation
	for i, line := range lines {
		if isCommentLine(line) || !ps.routeDef.MatchString(line) {
			continue
		}
		if ps.inlineAuth.MatchString(line) {
			continue
		}
		guarded := false
		for j := i - 1; j >= 0 && j >= i-authLookback; j-- {
			if ps.authMarker.MatchString(lines[j]) {
				guarded = true
				break
			}
		}
		if guarded {
			continue
		}
		out = append(out, newRegexViolation(
			controls.AccessControl, types.SevHigh, path, i+1, line,
			"handler accepts a request parameter but no authentication or authorization marker was found on or before the definition",
		))
	}
	return out
}

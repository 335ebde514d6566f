package rules

import (
	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/types"
)

// Resilience flags outbound network/database calls not enclosed in an
// error-handling block. The check is window-based: an error-block opener in
// the preceding lines, or same-line handling, counts as enclosed.
func Resilience(lines []string, path string, ps *patternSet) []types.Violation {
	var out []types.Violation
	for i, line := range lines {
		if isCommentLine(line) || !ps.outboundCall.MatchString(line) {
			continue
		}
		if ps.errorInline.MatchString(line) {
			continue
		}
		handled := false
		for j := i - 1; j >= 0 && j >= i-errorLookback; j-- {
			if ps.errorBlock.MatchString(lines[j]) {
				handled = true
				break
			}
		}
		if handled {
			continue
		}
		out = append(out, newRegexViolation(
			controls.Resilience, types.SevMed, path, i+1, line,
			"outbound call is not enclosed in an error-handling block",
		))
	}
	return out
}

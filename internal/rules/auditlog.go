package rules

import (
	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/types"
)

// AuditLogging flags sensitive state-mutating calls not followed within a
// short window by a logging call. The mutating line itself counts when it
// already logs.
func AuditLogging(lines []string, path string, ps *patternSet) []types.Violation {
	var out []types.Violation
	for i, line := range lines {
		if isCommentLine(line) || !ps.mutationCall.MatchString(line) {
			continue
		}
		logged := false
		for j := i; j < len(lines) && j <= i+loggingLookahead; j++ {
			if ps.loggingCall.MatchString(lines[j]) {
				logged = true
				break
			}
		}
		if logged {
			continue
		}
		out = append(out, newRegexViolation(
			controls.AuditLogging, types.SevMed, path, i+1, line,
			"state-mutating call is not followed by an audit logging statement",
		))
	}
	return out
}

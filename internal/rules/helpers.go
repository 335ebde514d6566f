package rules

import (
	"strings"

	"github.com/complyscan/complyscan/internal/types"
)

const (
	// how many preceding lines are inspected for auth decorators/middleware
	authLookback = 2
	// how many following lines may contain the audit log call
	loggingLookahead = 2
	// how many preceding lines may open an error-handling block
	errorLookback = 5

	maxSnippetLen = 200
)

// splitLines normalizes line endings and splits code into lines.
func splitLines(code string) []string {
	return strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
}

// snippet trims a source line for storage in a violation record.
func snippet(line string) string {
	s := strings.TrimRight(line, " \t")
	if len(s) > maxSnippetLen {
		s = s[:maxSnippetLen]
	}
	return s
}

// newRegexViolation builds the common shape of a rule-engine violation.
// IDs, scan association, status, and timestamps are assigned downstream at
// merge time.
func newRegexViolation(controlID string, sev types.Severity, path string, line int, src, reasoning string) types.Violation {
	return types.Violation{
		ControlID:       controlID,
		Severity:        sev,
		Description:     reasoning,
		FilePath:        path,
		LineNumber:      line,
		CodeSnippet:     snippet(src),
		DetectionMethod: types.MethodRegex,
		RegexReasoning:  reasoning,
	}
}

// isCommentLine reports whether the line is a comment for either family.
func isCommentLine(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "#") || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "*") || strings.HasPrefix(t, "/*")
}

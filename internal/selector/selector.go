// Package selector decides which files are eligible for AI analysis in a
// given scan mode. Selection is deterministic for a given file set.
package selector

import (
	"strings"

	"github.com/complyscan/complyscan/internal/types"
)

// DefaultKeywords is the security-relevance heuristic used by smart mode.
// It is a tunable constant, not a derived optimum.
var DefaultKeywords = []string{
	"auth", "login", "password", "secret", "token",
	"sql", "db", "api", "request", "session",
}

// Selector picks AI-eligible files. ReadContent supplies file content for
// the smart heuristic; a nil reader restricts the heuristic to paths.
type Selector struct {
	Keywords    []string
	ReadContent func(path string) (string, bool)
}

// New returns a Selector with the default keyword list.
func New(readContent func(path string) (string, bool)) *Selector {
	return &Selector{Keywords: DefaultKeywords, ReadContent: readContent}
}

// Select returns the subset of files eligible for AI analysis under mode.
// regex_only selects nothing, analyze_all selects everything, smart selects
// files whose path or content trips the keyword heuristic.
func (s *Selector) Select(files []types.FileMeta, mode types.ScanMode) []types.FileMeta {
	switch mode {
	case types.ModeRegexOnly:
		return nil
	case types.ModeAnalyzeAll:
		out := make([]types.FileMeta, len(files))
		copy(out, files)
		return out
	}

	var out []types.FileMeta
	for _, f := range files {
		if s.relevant(f.Path) {
			out = append(out, f)
		}
	}
	return out
}

func (s *Selector) relevant(path string) bool {
	lower := strings.ToLower(path)
	for _, kw := range s.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if s.ReadContent == nil {
		return false
	}
	content, ok := s.ReadContent(path)
	if !ok {
		return false
	}
	lc := strings.ToLower(content)
	for _, kw := range s.Keywords {
		if strings.Contains(lc, kw) {
			return true
		}
	}
	return false
}

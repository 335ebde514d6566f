// Package dedup merges rule-engine and AI detections of the same
// underlying defect into a single hybrid violation, so one issue is never
// double-counted.
package dedup

import (
	"strings"

	"github.com/complyscan/complyscan/internal/types"
)

// DefaultWindow is the line distance within which a regex and an llm
// detection on the same file are considered the same defect. A tunable
// constant, not a derived optimum.
const DefaultWindow = 3

// Merge combines regex and llm violations for a single file. Matching is
// greedy and one-to-one: each llm violation merges with at most one regex
// violation; ties resolve to the nearest line, then to the first
// encountered. Hybrid violations keep the regex control classification
// unless the llm flags a stricter severity, concatenate both reasonings,
// and carry the llm confidence. Merge is idempotent: splitting an
// already-merged set back into its components and re-merging reproduces
// the same hybrid set. window <= 0 uses DefaultWindow.
func Merge(regexViolations, llmViolations []types.Violation, window int) []types.Violation {
	if window <= 0 {
		window = DefaultWindow
	}

	used := make([]bool, len(llmViolations))
	out := make([]types.Violation, 0, len(regexViolations)+len(llmViolations))

	for _, rv := range regexViolations {
		best := -1
		bestDist := window + 1
		for i, lv := range llmViolations {
			if used[i] || lv.FilePath != rv.FilePath {
				continue
			}
			dist := abs(lv.LineNumber - rv.LineNumber)
			if dist > window {
				continue
			}
			if dist < bestDist {
				best = i
				bestDist = dist
			}
		}
		if best < 0 {
			out = append(out, rv)
			continue
		}
		used[best] = true
		out = append(out, mergeOne(rv, llmViolations[best]))
	}

	for i, lv := range llmViolations {
		if !used[i] {
			out = append(out, lv)
		}
	}
	return out
}

func mergeOne(rv, lv types.Violation) types.Violation {
	h := rv
	h.DetectionMethod = types.MethodHybrid
	h.Severity = types.MaxSeverity(rv.Severity, lv.Severity)
	h.LLMReasoning = lv.LLMReasoning
	h.ConfidenceScore = lv.ConfidenceScore
	h.Description = joinReasoning(rv.RegexReasoning, lv.LLMReasoning)
	return h
}

func joinReasoning(regex, llm string) string {
	regex = strings.TrimSpace(regex)
	llm = strings.TrimSpace(llm)
	switch {
	case regex == "":
		return llm
	case llm == "":
		return regex
	}
	return regex + "; " + llm
}

// Split decomposes a merged set back into its regex and llm components.
// Hybrid violations contribute to both sides. Used to verify idempotency.
func Split(merged []types.Violation) (regex, llm []types.Violation) {
	for _, v := range merged {
		switch v.DetectionMethod {
		case types.MethodRegex:
			regex = append(regex, v)
		case types.MethodLLM:
			llm = append(llm, v)
		case types.MethodHybrid:
			rv := v
			rv.DetectionMethod = types.MethodRegex
			rv.LLMReasoning = ""
			rv.ConfidenceScore = nil
			rv.Description = rv.RegexReasoning
			regex = append(regex, rv)

			lv := v
			lv.DetectionMethod = types.MethodLLM
			lv.RegexReasoning = ""
			lv.Description = lv.LLMReasoning
			llm = append(llm, lv)
		}
	}
	return regex, llm
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

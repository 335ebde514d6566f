// Package report renders scan results for terminals, JSON consumers, and
// SARIF-aware code hosts, and decides the process exit gate.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/complyscan/complyscan/internal/types"
)

type PrintOptions struct {
	NoColor      bool
	Duration     time.Duration
	FilesScanned int
	Cost         types.ScanCost
}

func PrintTable(w io.Writer, violations []types.Violation, opts PrintOptions) {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].FilePath == violations[j].FilePath {
			return violations[i].LineNumber < violations[j].LineNumber
		}
		return violations[i].FilePath < violations[j].FilePath
	})
	if len(violations) == 0 {
		fmt.Fprintln(w, "No violations found ✅")
	} else {
		maxControl := 8
		for _, v := range violations {
			if l := len(v.ControlID); l > maxControl {
				maxControl = l
			}
		}
		fmt.Fprintf(w, "Violations: %d\n", len(violations))
		for _, v := range violations {
			sev := string(v.Severity)
			if !opts.NoColor {
				sev = colorSeverity(v.Severity)
			}
			conf := ""
			if v.ConfidenceScore != nil {
				conf = fmt.Sprintf("  (%d%%)", *v.ConfidenceScore)
			}
			fmt.Fprintf(w, "%-8s %-*s %s:%d  [%s]%s\n",
				sev, maxControl, v.ControlID, v.FilePath, v.LineNumber,
				v.DetectionMethod, conf)
		}
	}

	counts := map[types.Severity]int{}
	for _, v := range violations {
		counts[v.Severity]++
	}
	if opts.Duration > 0 || opts.FilesScanned > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Violations: %d (critical: %d, high: %d, medium: %d, low: %d)\n",
			len(violations), counts[types.SevCritical], counts[types.SevHigh],
			counts[types.SevMed], counts[types.SevLow])
		if opts.Duration > 0 {
			fmt.Fprintf(w, "Scan duration: %.2fs\n", opts.Duration.Seconds())
		}
		if opts.FilesScanned > 0 {
			fmt.Fprintf(w, "Files scanned: %d\n", opts.FilesScanned)
		}
		if opts.Cost.FilesAnalyzedWithLLM > 0 {
			fmt.Fprintf(w, "AI analysis: %d files, $%.4f\n",
				opts.Cost.FilesAnalyzedWithLLM, opts.Cost.TotalCostUSD)
		}
	}
}

// WriteJSON emits the violations as a JSON array for machine consumers.
func WriteJSON(w io.Writer, violations []types.Violation) error {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].FilePath == violations[j].FilePath {
			return violations[i].LineNumber < violations[j].LineNumber
		}
		return violations[i].FilePath < violations[j].FilePath
	})
	if violations == nil {
		violations = []types.Violation{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(violations)
}

// ShouldFail reports whether any violation meets or exceeds the fail-on
// threshold. An empty threshold never fails the run.
func ShouldFail(violations []types.Violation, failOn types.Severity) bool {
	if failOn == "" {
		return false
	}
	min := failOn.Rank()
	if min == 0 {
		return false
	}
	for _, v := range violations {
		if v.Severity.Rank() >= min {
			return true
		}
	}
	return false
}

func colorSeverity(s types.Severity) string {
	switch s {
	case types.SevCritical:
		return "\x1b[35mcritical\x1b[0m" // magenta
	case types.SevHigh:
		return "\x1b[31mhigh\x1b[0m" // red
	case types.SevMed:
		return "\x1b[33mmedium\x1b[0m" // yellow
	default:
		return "\x1b[36mlow\x1b[0m" // cyan
	}
}

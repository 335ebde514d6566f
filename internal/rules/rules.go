// Package rules is the deterministic pattern engine. Analysis is pure:
// identical input always yields identical output, with no network or disk
// access. Detectors are line-oriented with minimal lookback/lookahead
// context; there is no control-flow graph.
package rules

import (
	"fmt"

	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/types"
)

// Detector is one independent per-control rule check.
type Detector struct {
	ControlID string
	Run       func(lines []string, path string, ps *patternSet) []types.Violation
}

var all = []Detector{
	{controls.AccessControl, AccessControl},
	{controls.Secrets, Secrets},
	{controls.AuditLogging, AuditLogging},
	{controls.Resilience, Resilience},
}

// ControlIDs returns the control IDs the engine has detectors for.
func ControlIDs() []string {
	ids := make([]string, len(all))
	for i, d := range all {
		ids[i] = d.ControlID
	}
	return ids
}

// Analyze runs every enabled detector over the code and returns regex
// violations plus per-detector errors. A detector that panics on malformed
// input does not abort analysis: its violations for this file are dropped
// and the error is recorded. enabled == nil runs all detectors.
func Analyze(code, path string, fw types.Framework, enabled map[string]bool) ([]types.Violation, []error) {
	lines := splitLines(code)
	ps := setFor(fw, path)

	var out []types.Violation
	var errs []error
	for _, d := range all {
		if enabled != nil && !enabled[d.ControlID] {
			continue
		}
		vs, err := runSafe(d, lines, path, ps)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, vs...)
	}
	return out, errs
}

func runSafe(d Detector, lines []string, path string, ps *patternSet) (vs []types.Violation, err error) {
	defer func() {
		if r := recover(); r != nil {
			vs = nil
			err = fmt.Errorf("detector %s failed on %s: %v", d.ControlID, path, r)
		}
	}()
	return d.Run(lines, path, ps), nil
}

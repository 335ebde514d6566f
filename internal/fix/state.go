// Package fix generates remediation suggestions for violations. The
// pipeline is an explicit state machine (Parse, Analyze, GenerateFixes,
// Validate) that degrades instead of erroring: every run yields exactly
// one Fix, falling back to a manual-review fix when no usable code change
// can be produced.
package fix

import (
	"strings"

	"github.com/google/uuid"

	"github.com/complyscan/complyscan/internal/types"
)

// Stage is a fix-pipeline phase. Done is terminal.
type Stage string

const (
	StageParse         Stage = "parse"
	StageAnalyze       Stage = "analyze"
	StageGenerateFixes Stage = "generate_fixes"
	StageValidate      Stage = "validate"
	StageDone          Stage = "done"
)

// State carries the pipeline through its stages. Degraded marks a run
// that could not produce a usable code change; it never aborts the
// pipeline, it only downgrades the trust level of the result.
type State struct {
	Stage     Stage
	Violation types.Violation
	Content   string
	Framework types.Framework

	lines    []string
	target   int // 0-based index of the violating line
	indent   string
	original string
	fixed    string
	explain  string

	Degraded bool
	Reason   string
}

// NewState seeds a pipeline run for one violation against current file
// content.
func NewState(v types.Violation, content string, fw types.Framework) State {
	if fw == "" || fw == types.FrameworkUnknown {
		fw = types.FrameworkForPath(v.FilePath)
	}
	return State{Stage: StageParse, Violation: v, Content: content, Framework: fw}
}

// Step advances the pipeline by exactly one stage and returns the next
// state. Calling Step on a done state returns it unchanged.
func Step(s State) State {
	switch s.Stage {
	case StageParse:
		return stepParse(s)
	case StageAnalyze:
		return stepAnalyze(s)
	case StageGenerateFixes:
		return stepGenerate(s)
	case StageValidate:
		return stepValidate(s)
	}
	return s
}

// Run drives the pipeline to completion and returns exactly one Fix.
// Usable code changes are marked for review; degraded runs produce a
// manual fix whose explanation states what to do by hand.
func Run(v types.Violation, content string, fw types.Framework) types.Fix {
	s := NewState(v, content, fw)
	for s.Stage != StageDone {
		s = Step(s)
	}
	return s.Fix()
}

// Fix materializes the pipeline result. Only valid once Stage is Done.
func (s State) Fix() types.Fix {
	f := types.Fix{
		ID:          uuid.NewString(),
		ViolationID: s.Violation.ID,
		TrustLevel:  types.TrustReview,
	}
	if s.Degraded {
		f.TrustLevel = types.TrustManual
		f.OriginalCode = s.original
		f.Explanation = manualExplanation(s.Violation, s.Reason)
		return f
	}
	f.OriginalCode = s.original
	f.FixedCode = s.fixed
	f.Explanation = s.explain
	return f
}

func (s State) degrade(reason string) State {
	s.Degraded = true
	s.Reason = reason
	s.Stage = StageDone
	return s
}

func stepParse(s State) State {
	if strings.TrimSpace(s.Violation.FilePath) == "" {
		return s.degrade("violation names no file")
	}
	if strings.TrimSpace(s.Content) == "" {
		return s.degrade("file content is empty")
	}
	s.lines = strings.Split(strings.ReplaceAll(s.Content, "\r\n", "\n"), "\n")
	if s.Violation.LineNumber < 1 || s.Violation.LineNumber > len(s.lines) {
		return s.degrade("violation line is out of range for the current file")
	}
	s.Stage = StageAnalyze
	return s
}

func stepAnalyze(s State) State {
	s.target = s.Violation.LineNumber - 1
	line := s.lines[s.target]
	if strings.TrimSpace(line) == "" {
		return s.degrade("violation line is blank; the file has likely changed")
	}
	s.indent = leadingWhitespace(line)
	s.original = line
	s.Stage = StageGenerateFixes
	return s
}

func stepGenerate(s State) State {
	g, ok := generators[s.Violation.ControlID]
	if !ok {
		return s.degrade("no fix generator for this control")
	}
	fixed, explain, ok := g(s)
	if !ok {
		return s.degrade("the violating code did not match a fixable shape")
	}
	s.fixed = fixed
	s.explain = explain
	s.Stage = StageValidate
	return s
}

func stepValidate(s State) State {
	if strings.TrimSpace(s.fixed) == "" || s.fixed == s.original {
		return s.degrade("generated fix does not change the code")
	}
	if !strings.Contains(s.Content, s.original) {
		return s.degrade("original code no longer present in the file")
	}
	s.Stage = StageDone
	return s
}

func manualExplanation(v types.Violation, reason string) string {
	return "Manual remediation required for " + v.ControlID + " at " +
		v.FilePath + ": " + reason + "."
}

func leadingWhitespace(line string) string {
	for i, r := range line {
		if r != ' ' && r != '\t' {
			return line[:i]
		}
	}
	return line
}

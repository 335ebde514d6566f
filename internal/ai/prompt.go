package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/types"
)

// rawViolation is the JSON shape the model is asked to produce per finding.
type rawViolation struct {
	ControlID  string `json:"control_id"`
	Severity   string `json:"severity"`
	LineNumber int    `json:"line_number"`
	Reasoning  string `json:"reasoning"`
	Confidence int    `json:"confidence"`
}

func buildPrompt(code, filePath string, fw types.Framework, catalog []types.Control) string {
	var b strings.Builder
	b.WriteString("You are a compliance analyzer. Review the file below for violations of these controls:\n\n")
	for _, c := range catalog {
		fmt.Fprintf(&b, "- %s: %s %s\n", c.ID, c.Description, c.Requirement)
	}
	fmt.Fprintf(&b, "\nFile: %s (framework: %s)\n```\n%s\n```\n\n", filePath, fw, code)
	b.WriteString(`Respond with a JSON array, one object per violation: ` +
		`{"control_id": string, "severity": "critical"|"high"|"medium"|"low", ` +
		`"line_number": int (1-based), "reasoning": string, "confidence": int (1-100)}. ` +
		`Respond with [] when the file is compliant.`)
	return b.String()
}

// parseViolations converts a model response into llm violations. Entries
// with unknown controls, out-of-range lines, or no reasoning are dropped;
// confidence is clamped into (0,100].
func parseViolations(text, filePath string) ([]types.Violation, error) {
	payload := strings.TrimSpace(text)
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty response")
	}

	var raw []rawViolation
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var out []types.Violation
	for _, r := range raw {
		if _, ok := controls.ByID(r.ControlID); !ok {
			continue
		}
		if r.LineNumber < 1 || strings.TrimSpace(r.Reasoning) == "" {
			continue
		}
		conf := r.Confidence
		if conf <= 0 {
			conf = 1
		}
		if conf > 100 {
			conf = 100
		}
		sev := types.Severity(r.Severity)
		if sev.Rank() == 0 {
			sev = types.SevMed
		}
		out = append(out, types.Violation{
			ControlID:       r.ControlID,
			Severity:        sev,
			Description:     r.Reasoning,
			FilePath:        filePath,
			LineNumber:      r.LineNumber,
			DetectionMethod: types.MethodLLM,
			LLMReasoning:    r.Reasoning,
			ConfidenceScore: &conf,
		})
	}
	return out, nil
}

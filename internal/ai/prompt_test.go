package ai

import (
	"testing"

	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseViolations(t *testing.T) {
	text := `[
		{"control_id": "access-control", "severity": "high", "line_number": 1, "reasoning": "no auth check", "confidence": 85},
		{"control_id": "secrets-management", "severity": "critical", "line_number": 3, "reasoning": "hardcoded password", "confidence": 95}
	]`
	vs, err := parseViolations(text, "app.py")
	require.NoError(t, err)
	require.Len(t, vs, 2)

	assert.Equal(t, controls.AccessControl, vs[0].ControlID)
	assert.Equal(t, types.MethodLLM, vs[0].DetectionMethod)
	assert.Equal(t, "app.py", vs[0].FilePath)
	assert.Equal(t, 1, vs[0].LineNumber)
	require.NotNil(t, vs[0].ConfidenceScore)
	assert.Equal(t, 85, *vs[0].ConfidenceScore)
	assert.Equal(t, "no auth check", vs[0].LLMReasoning)
}

func TestParseViolationsStripsFences(t *testing.T) {
	text := "```json\n[{\"control_id\": \"resilience\", \"severity\": \"medium\", \"line_number\": 2, \"reasoning\": \"no error handling\", \"confidence\": 60}]\n```"
	vs, err := parseViolations(text, "x.js")
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, controls.Resilience, vs[0].ControlID)
}

func TestParseViolationsDropsJunk(t *testing.T) {
	text := `[
		{"control_id": "made-up", "severity": "high", "line_number": 1, "reasoning": "x", "confidence": 50},
		{"control_id": "resilience", "severity": "medium", "line_number": 0, "reasoning": "x", "confidence": 50},
		{"control_id": "resilience", "severity": "medium", "line_number": 4, "reasoning": "", "confidence": 50}
	]`
	vs, err := parseViolations(text, "x.py")
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestParseViolationsClampsConfidence(t *testing.T) {
	text := `[
		{"control_id": "resilience", "severity": "medium", "line_number": 1, "reasoning": "a", "confidence": 500},
		{"control_id": "resilience", "severity": "weird", "line_number": 9, "reasoning": "b", "confidence": -3}
	]`
	vs, err := parseViolations(text, "x.py")
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, 100, *vs[0].ConfidenceScore)
	assert.Equal(t, 1, *vs[1].ConfidenceScore)
	assert.Equal(t, types.SevMed, vs[1].Severity, "unknown severity defaults to medium")
}

func TestParseViolationsRejectsMalformed(t *testing.T) {
	_, err := parseViolations("the file looks fine to me", "x.py")
	assert.Error(t, err)

	_, err = parseViolations("", "x.py")
	assert.Error(t, err)
}

func TestBuildPromptMentionsControlsAndFile(t *testing.T) {
	p := buildPrompt("code here", "app.py", types.FrameworkFlask, controls.All())
	assert.Contains(t, p, "access-control")
	assert.Contains(t, p, "app.py")
	assert.Contains(t, p, "code here")
	assert.Contains(t, p, "JSON array")
}

func TestPricingFallback(t *testing.T) {
	assert.Equal(t, pricing["gemini-2.5-flash"], pricingFor("gemini-2.5-flash"))
	assert.Equal(t, pricing["gemini-2.5-flash"], pricingFor("gemini-2.5-flash-001"))
	assert.Equal(t, fallbackPricing, pricingFor("some-new-model"))
}

func TestCostUSD(t *testing.T) {
	// 1M input + 1M output at the 2.5-flash rate
	got := costUSD("gemini-2.5-flash", 1_000_000, 1_000_000, 0)
	assert.InDelta(t, 2.80, got, 1e-9)
}

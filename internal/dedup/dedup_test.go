package dedup

import (
	"testing"

	"github.com/complyscan/complyscan/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func regexV(path string, line int, sev types.Severity) types.Violation {
	return types.Violation{
		ControlID:       "access-control",
		Severity:        sev,
		Description:     "missing auth marker",
		FilePath:        path,
		LineNumber:      line,
		DetectionMethod: types.MethodRegex,
		RegexReasoning:  "missing auth marker",
	}
}

func llmV(path string, line int, sev types.Severity, conf int) types.Violation {
	return types.Violation{
		ControlID:       "access-control",
		Severity:        sev,
		Description:     "handler lacks authorization",
		FilePath:        path,
		LineNumber:      line,
		DetectionMethod: types.MethodLLM,
		LLMReasoning:    "handler lacks authorization",
		ConfidenceScore: intp(conf),
	}
}

func TestMergeSameLineProducesHybrid(t *testing.T) {
	got := Merge(
		[]types.Violation{regexV("app.py", 1, types.SevHigh)},
		[]types.Violation{llmV("app.py", 1, types.SevMed, 85)},
		0,
	)
	require.Len(t, got, 1)
	h := got[0]
	assert.Equal(t, types.MethodHybrid, h.DetectionMethod)
	assert.Equal(t, types.SevHigh, h.Severity, "regex severity kept when stricter")
	assert.NotEmpty(t, h.RegexReasoning)
	assert.NotEmpty(t, h.LLMReasoning)
	require.NotNil(t, h.ConfidenceScore)
	assert.Equal(t, 85, *h.ConfidenceScore)
}

func TestMergeTakesStricterLLMSeverity(t *testing.T) {
	got := Merge(
		[]types.Violation{regexV("app.py", 5, types.SevMed)},
		[]types.Violation{llmV("app.py", 6, types.SevCritical, 90)},
		0,
	)
	require.Len(t, got, 1)
	assert.Equal(t, types.SevCritical, got[0].Severity)
}

func TestMergeOutsideWindowStaysSeparate(t *testing.T) {
	got := Merge(
		[]types.Violation{regexV("app.py", 1, types.SevHigh)},
		[]types.Violation{llmV("app.py", 10, types.SevHigh, 70)},
		3,
	)
	require.Len(t, got, 2)
	methods := map[types.DetectionMethod]bool{}
	for _, v := range got {
		methods[v.DetectionMethod] = true
	}
	assert.True(t, methods[types.MethodRegex])
	assert.True(t, methods[types.MethodLLM])
}

func TestMergeDifferentFilesNeverMatch(t *testing.T) {
	got := Merge(
		[]types.Violation{regexV("a.py", 1, types.SevHigh)},
		[]types.Violation{llmV("b.py", 1, types.SevHigh, 70)},
		3,
	)
	assert.Len(t, got, 2)
}

func TestMergeGreedyOneToOneNearestWins(t *testing.T) {
	// Two regex hits, one llm hit between them; nearest (line 4 vs 7) wins
	// and the llm violation is consumed exactly once.
	got := Merge(
		[]types.Violation{regexV("app.py", 4, types.SevHigh), regexV("app.py", 7, types.SevHigh)},
		[]types.Violation{llmV("app.py", 5, types.SevHigh, 60)},
		3,
	)
	require.Len(t, got, 2)
	var hybrids, regexes int
	for _, v := range got {
		switch v.DetectionMethod {
		case types.MethodHybrid:
			hybrids++
			assert.Equal(t, 4, v.LineNumber)
		case types.MethodRegex:
			regexes++
			assert.Equal(t, 7, v.LineNumber)
		}
	}
	assert.Equal(t, 1, hybrids)
	assert.Equal(t, 1, regexes)
}

func TestMergeTieResolvesToFirstEncountered(t *testing.T) {
	got := Merge(
		[]types.Violation{regexV("app.py", 5, types.SevHigh)},
		[]types.Violation{llmV("app.py", 3, types.SevHigh, 50), llmV("app.py", 7, types.SevHigh, 90)},
		3,
	)
	require.Len(t, got, 2)
	for _, v := range got {
		if v.DetectionMethod == types.MethodHybrid {
			require.NotNil(t, v.ConfidenceScore)
			assert.Equal(t, 50, *v.ConfidenceScore, "equidistant candidates resolve to the first encountered")
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	regex := []types.Violation{
		regexV("app.py", 1, types.SevHigh),
		regexV("app.py", 20, types.SevMed),
	}
	llm := []types.Violation{
		llmV("app.py", 2, types.SevCritical, 85),
		llmV("app.py", 40, types.SevLow, 30),
	}
	first := Merge(regex, llm, 3)

	r2, l2 := Split(first)
	second := Merge(r2, l2, 3)

	assert.Equal(t, first, second, "re-merging split components must reproduce the merged set")
}

func TestHybridInvariant(t *testing.T) {
	got := Merge(
		[]types.Violation{regexV("app.py", 1, types.SevHigh)},
		[]types.Violation{llmV("app.py", 1, types.SevHigh, 75)},
		0,
	)
	for _, v := range got {
		if v.DetectionMethod == types.MethodHybrid {
			assert.NotNil(t, v.ConfidenceScore)
			assert.NotEmpty(t, v.RegexReasoning)
			assert.NotEmpty(t, v.LLMReasoning)
		}
		if v.DetectionMethod == types.MethodRegex {
			assert.Nil(t, v.ConfidenceScore)
		}
	}
}

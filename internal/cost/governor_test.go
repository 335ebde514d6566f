package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGovernorAccumulates(t *testing.T) {
	g := NewGovernor(1.0, 10)
	g.Record(Usage{InputTokens: 100, OutputTokens: 50, CostUSD: 0.02})
	g.Record(Usage{InputTokens: 200, OutputTokens: 80, CacheReadTokens: 30, CostUSD: 0.03})

	c := g.Cost()
	assert.Equal(t, 2, c.FilesAnalyzedWithLLM)
	assert.Equal(t, int64(300), c.InputTokens)
	assert.Equal(t, int64(130), c.OutputTokens)
	assert.Equal(t, int64(30), c.CacheReadTokens)
	assert.InDelta(t, 0.05, c.TotalCostUSD, 1e-9)
}

func TestGateFiresExactlyOnce(t *testing.T) {
	g := NewGovernor(0.10, 5)

	g.Record(Usage{CostUSD: 0.04})
	assert.False(t, g.Check().Exceeded)

	g.Record(Usage{CostUSD: 0.07})
	st := g.Check()
	assert.True(t, st.Exceeded)
	assert.InDelta(t, 0.11, st.CurrentCost, 1e-9)
	assert.Equal(t, 0.10, st.Limit)
	assert.Equal(t, 2, st.FilesAnalyzed)
	assert.Equal(t, 5, st.TotalFiles)

	// Spend keeps growing past the limit but the gate stays quiet.
	g.Record(Usage{CostUSD: 0.50})
	assert.False(t, g.Check().Exceeded)
}

func TestSuspendDisablesGating(t *testing.T) {
	g := NewGovernor(0.01, 3)
	g.Suspend()
	g.Record(Usage{CostUSD: 5.0})
	assert.False(t, g.Check().Exceeded)
}

func TestZeroLimitDisablesGating(t *testing.T) {
	g := NewGovernor(0, 3)
	g.Record(Usage{CostUSD: 100})
	assert.False(t, g.Check().Exceeded)
}

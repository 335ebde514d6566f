// Package cost tracks cumulative AI spend for one scan and gates the
// pipeline when spend crosses the configured limit. The governor never
// decides continue/stop itself; that decision is supplied externally.
package cost

import (
	"sync"

	"github.com/complyscan/complyscan/internal/types"
)

// Usage is the token/cost yield of one AI analysis call.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	CostUSD          float64
}

// Status is a snapshot returned by Check. Exceeded is reported at most
// once per scan: after an external "continue" the limit check is suspended
// for the remainder of the scan.
type Status struct {
	Exceeded      bool
	CurrentCost   float64
	Limit         float64
	FilesAnalyzed int
	TotalFiles    int
}

// Governor accumulates per-scan AI spend. One instance per scan;
// access is serialized so updates remain strictly ordered.
type Governor struct {
	mu         sync.Mutex
	limit      float64
	totalFiles int
	cost       types.ScanCost
	tripped    bool // the gate fired already
	suspended  bool // external "continue" disabled further gating
}

// NewGovernor creates a governor for one scan. limitUSD <= 0 disables
// gating entirely.
func NewGovernor(limitUSD float64, totalFiles int) *Governor {
	return &Governor{limit: limitUSD, totalFiles: totalFiles}
}

// Record adds one analyzed file's usage to the running totals.
func (g *Governor) Record(u Usage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cost.FilesAnalyzedWithLLM++
	g.cost.InputTokens += u.InputTokens
	g.cost.OutputTokens += u.OutputTokens
	g.cost.CacheReadTokens += u.CacheReadTokens
	g.cost.CacheWriteTokens += u.CacheWriteTokens
	g.cost.TotalCostUSD += u.CostUSD
}

// Check reports whether cumulative spend has crossed the limit. It trips
// at most once: subsequent calls report within-limit even if spend keeps
// growing, so the caller sees a single gate per scan.
func (g *Governor) Check() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := Status{
		CurrentCost:   g.cost.TotalCostUSD,
		Limit:         g.limit,
		FilesAnalyzed: g.cost.FilesAnalyzedWithLLM,
		TotalFiles:    g.totalFiles,
	}
	if g.limit <= 0 || g.suspended || g.tripped {
		return st
	}
	if g.cost.TotalCostUSD >= g.limit {
		g.tripped = true
		st.Exceeded = true
	}
	return st
}

// Suspend disables further gating after an external "continue" decision.
func (g *Governor) Suspend() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.suspended = true
}

// Cost returns a copy of the accumulated scan cost.
func (g *Governor) Cost() types.ScanCost {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cost
}

package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/cost"
	"github.com/complyscan/complyscan/internal/store"
	"github.com/complyscan/complyscan/internal/types"
)

// fakeAnalyzer returns canned violations per path and a fixed usage per
// call. block, when set, holds every call until the context is cancelled.
type fakeAnalyzer struct {
	mu         sync.Mutex
	calls      []string
	perCall    cost.Usage
	violations map[string][]types.Violation
	block      bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, _, filePath string, _ types.Framework, _ []types.Control) ([]types.Violation, cost.Usage, error) {
	if f.block {
		<-ctx.Done()
		return nil, cost.Usage{}, ctx.Err()
	}
	f.mu.Lock()
	f.calls = append(f.calls, filePath)
	f.mu.Unlock()
	return f.violations[filePath], f.perCall, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

const appPy = "def admin(request):\n    return data\nPASSWORD = \"x\"\n"

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func TestRegexOnlyScan(t *testing.T) {
	root := writeProject(t, map[string]string{"app.py": appPy})
	st := store.NewMemory()

	o := New(Options{Root: root, Mode: types.ModeRegexOnly, NoCache: true}, nil, st, nil)
	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, o.State())

	require.Len(t, res.Violations, 2)
	for _, v := range res.Violations {
		assert.Equal(t, types.MethodRegex, v.DetectionMethod)
		assert.Equal(t, types.StatusOpen, v.Status)
		assert.Equal(t, o.ScanID(), v.ScanID)
		assert.NotEmpty(t, v.ID)
		assert.Nil(t, v.ConfidenceScore)
	}
	assert.Zero(t, res.Cost.TotalCostUSD)
	assert.Zero(t, res.Cost.FilesAnalyzedWithLLM)

	persisted, err := st.Violations(context.Background(), store.Filter{ScanID: o.ScanID()})
	require.NoError(t, err)
	assert.Len(t, persisted, 2)
}

func TestSmartScanMergesIntoHybrid(t *testing.T) {
	root := writeProject(t, map[string]string{"app.py": appPy})
	st := store.NewMemory()
	conf := 90
	fa := &fakeAnalyzer{
		perCall: cost.Usage{InputTokens: 100, OutputTokens: 20, CostUSD: 0.001},
		violations: map[string][]types.Violation{
			"app.py": {{
				ControlID:       controls.AccessControl,
				Severity:        types.SevCritical,
				FilePath:        "app.py",
				LineNumber:      2,
				DetectionMethod: types.MethodLLM,
				LLMReasoning:    "handler returns data without verifying the caller",
				ConfidenceScore: &conf,
			}},
		},
	}

	o := New(Options{Root: root, Mode: types.ModeSmart, NoCache: true}, fa, st, nil)
	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, o.State())
	assert.Equal(t, 1, fa.callCount())

	var hybrid *types.Violation
	for i := range res.Violations {
		if res.Violations[i].DetectionMethod == types.MethodHybrid {
			hybrid = &res.Violations[i]
		}
	}
	require.NotNil(t, hybrid, "regex and llm hit within the merge window must merge")
	assert.Equal(t, controls.AccessControl, hybrid.ControlID)
	assert.Equal(t, types.SevCritical, hybrid.Severity, "llm severity is stricter and wins")
	require.NotNil(t, hybrid.ConfidenceScore)
	assert.Equal(t, 90, *hybrid.ConfidenceScore)
	assert.NotEmpty(t, hybrid.RegexReasoning)
	assert.NotEmpty(t, hybrid.LLMReasoning)

	assert.Equal(t, 1, res.Cost.FilesAnalyzedWithLLM)
	assert.InDelta(t, 0.001, res.Cost.TotalCostUSD, 1e-9)
}

func TestCostGateStop(t *testing.T) {
	root := writeProject(t, map[string]string{
		"auth_a.py": "token = fetch()\n",
		"auth_b.py": "token = fetch()\n",
		"auth_c.py": "token = fetch()\n",
	})
	st := store.NewMemory()
	fa := &fakeAnalyzer{perCall: cost.Usage{CostUSD: 1.0}}

	o := New(Options{
		Root:          root,
		Mode:          types.ModeAnalyzeAll,
		CostLimitUSD:  0.5,
		AIConcurrency: 1,
		NoCache:       true,
	}, fa, st, nil)

	done := make(chan Result, 1)
	go func() {
		res, err := o.Run(context.Background())
		require.NoError(t, err)
		done <- res
	}()

	select {
	case gate := <-o.CostGate():
		assert.True(t, gate.Exceeded)
		assert.GreaterOrEqual(t, gate.CurrentCost, 0.5)
		assert.Equal(t, 0.5, gate.Limit)
		o.RespondToCostLimit(false)
	case <-time.After(5 * time.Second):
		t.Fatal("cost gate never fired")
	}

	res := <-done
	assert.Equal(t, StateCompleted, o.State())
	assert.Equal(t, 1, fa.callCount(), "stop keeps results gathered so far, analyzes no more")
	assert.Equal(t, 1, res.Cost.FilesAnalyzedWithLLM)
}

func TestCostGateContinueFiresOnce(t *testing.T) {
	root := writeProject(t, map[string]string{
		"auth_a.py": "token = fetch()\n",
		"auth_b.py": "token = fetch()\n",
		"auth_c.py": "token = fetch()\n",
	})
	st := store.NewMemory()
	fa := &fakeAnalyzer{perCall: cost.Usage{CostUSD: 1.0}}

	o := New(Options{
		Root:          root,
		Mode:          types.ModeAnalyzeAll,
		CostLimitUSD:  0.5,
		AIConcurrency: 1,
		NoCache:       true,
	}, fa, st, nil)

	done := make(chan Result, 1)
	go func() {
		res, err := o.Run(context.Background())
		require.NoError(t, err)
		done <- res
	}()

	select {
	case <-o.CostGate():
		o.RespondToCostLimit(true)
		// a second answer with no gate pending is a no-op
		o.RespondToCostLimit(false)
	case <-time.After(5 * time.Second):
		t.Fatal("cost gate never fired")
	}

	res := <-done
	assert.Equal(t, 3, fa.callCount(), "continue disables gating for the rest of the scan")
	assert.Equal(t, 3, res.Cost.FilesAnalyzedWithLLM)

	select {
	case <-o.CostGate():
		t.Fatal("gate fired twice")
	default:
	}
}

func TestCancelBeforeMergePersistsNothing(t *testing.T) {
	root := writeProject(t, map[string]string{"auth.py": "token = fetch()\n"})
	st := store.NewMemory()
	fa := &fakeAnalyzer{block: true}

	o := New(Options{Root: root, Mode: types.ModeAnalyzeAll, NoCache: true}, fa, st, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background())
		errCh <- err
	}()

	// let the scan reach the AI phase, then cancel
	deadline := time.Now().Add(5 * time.Second)
	for o.State() != StateAIPhase && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	o.Cancel()

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, o.State())

	persisted, qerr := st.Violations(context.Background(), store.Filter{ScanID: o.ScanID()})
	require.NoError(t, qerr)
	assert.Empty(t, persisted, "a cancelled scan persists no violations")
	_, ok := st.Cost(o.ScanID())
	assert.False(t, ok, "a cancelled scan persists no cost record")
}

func TestAICacheSkipsUnchangedFiles(t *testing.T) {
	root := writeProject(t, map[string]string{"auth.py": "token = fetch()\n"})
	fa := &fakeAnalyzer{perCall: cost.Usage{CostUSD: 0.001}}

	run := func() {
		o := New(Options{Root: root, Mode: types.ModeAnalyzeAll}, fa, store.NewMemory(), nil)
		_, err := o.Run(context.Background())
		require.NoError(t, err)
	}

	run()
	assert.Equal(t, 1, fa.callCount())
	run()
	assert.Equal(t, 1, fa.callCount(), "unchanged file must not be re-billed")

	require.NoError(t, os.WriteFile(filepath.Join(root, "auth.py"), []byte("token = refetch()\n"), 0644))
	run()
	assert.Equal(t, 2, fa.callCount(), "changed content invalidates the cache entry")
}

func TestAICacheReplaysFindings(t *testing.T) {
	root := writeProject(t, map[string]string{"app.py": appPy})
	conf := 90
	fa := &fakeAnalyzer{
		perCall: cost.Usage{InputTokens: 100, OutputTokens: 20, CostUSD: 0.001},
		violations: map[string][]types.Violation{
			"app.py": {{
				ControlID:       controls.AccessControl,
				Severity:        types.SevCritical,
				FilePath:        "app.py",
				LineNumber:      1,
				DetectionMethod: types.MethodLLM,
				LLMReasoning:    "handler exposes data without an authorization check",
				ConfidenceScore: &conf,
			}},
		},
	}

	run := func() Result {
		o := New(Options{Root: root, Mode: types.ModeAnalyzeAll}, fa, store.NewMemory(), nil)
		res, err := o.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	countHybrid := func(res Result) int {
		n := 0
		for _, v := range res.Violations {
			if v.DetectionMethod == types.MethodHybrid {
				n++
			}
		}
		return n
	}

	first := run()
	require.Equal(t, 1, fa.callCount())
	require.Equal(t, 1, countHybrid(first))

	second := run()
	assert.Equal(t, 1, fa.callCount(), "unchanged file must not be re-billed")
	assert.Equal(t, 1, countHybrid(second), "a cache hit replays the AI findings, it never drops them")
	assert.Len(t, second.Violations, len(first.Violations))
	assert.Zero(t, second.Cost.TotalCostUSD)
	assert.Zero(t, second.Cost.FilesAnalyzedWithLLM)
}

func TestAIRateLimitSpacesCalls(t *testing.T) {
	root := writeProject(t, map[string]string{
		"auth_a.py": "token = fetch()\n",
		"auth_b.py": "token = fetch()\n",
		"auth_c.py": "token = fetch()\n",
	})
	fa := &fakeAnalyzer{}

	o := New(Options{
		Root:             root,
		Mode:             types.ModeAnalyzeAll,
		AIRequestsPerMin: 1200, // one dispatch per 50ms
		NoCache:          true,
	}, fa, store.NewMemory(), nil)

	start := time.Now()
	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, fa.callCount())
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond,
		"three dispatches at 1200 req/min take at least two limiter intervals")
}

type failingStore struct {
	*store.MemoryStore
}

func (f *failingStore) SaveViolations(context.Context, string, []types.Violation) error {
	return errors.New("disk full")
}

func TestStoreFailureFailsScan(t *testing.T) {
	root := writeProject(t, map[string]string{"app.py": appPy})
	o := New(Options{Root: root, Mode: types.ModeRegexOnly, NoCache: true},
		nil, &failingStore{store.NewMemory()}, nil)

	_, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist violations")
	assert.Equal(t, StateFailed, o.State())
}

func TestEnabledControlsSubset(t *testing.T) {
	root := writeProject(t, map[string]string{"app.py": appPy})
	st := store.NewMemory()

	o := New(Options{
		Root:            root,
		Mode:            types.ModeRegexOnly,
		EnabledControls: []string{controls.Secrets},
		NoCache:         true,
	}, nil, st, nil)
	res, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Violations, 1)
	assert.Equal(t, controls.Secrets, res.Violations[0].ControlID)
}

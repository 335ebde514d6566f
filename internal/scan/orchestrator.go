// Package scan drives a full compliance scan: deterministic rule phase,
// AI file selection, bounded-concurrency AI analysis behind a cost gate,
// merge of overlapping detections, and persistence. One Orchestrator per
// scan; Run is not reentrant.
package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/complyscan/complyscan/internal/ai"
	"github.com/complyscan/complyscan/internal/cache"
	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/cost"
	"github.com/complyscan/complyscan/internal/dedup"
	"github.com/complyscan/complyscan/internal/files"
	"github.com/complyscan/complyscan/internal/rules"
	"github.com/complyscan/complyscan/internal/selector"
	"github.com/complyscan/complyscan/internal/store"
	"github.com/complyscan/complyscan/internal/types"
)

// State is the orchestrator lifecycle phase. Completed, Cancelled, and
// Failed are terminal.
type State string

const (
	StateIdle          State = "idle"
	StateRegexPhase    State = "regex_phase"
	StateFileSelection State = "file_selection"
	StateAIPhase       State = "ai_phase"
	StateCostGate      State = "cost_gate"
	StateDedup         State = "dedup"
	StateCompleted     State = "completed"
	StateCancelled     State = "cancelled"
	StateFailed        State = "failed"
)

const defaultAIConcurrency = 4

// Options configure one scan run.
type Options struct {
	Root             string
	Mode             types.ScanMode
	Framework        types.Framework // forced framework; empty or unknown means per-file inference
	EnabledControls  []string        // nil means all controls
	CostLimitUSD     float64
	MergeWindow      int // 0 means dedup.DefaultWindow
	Keywords         []string
	AIConcurrency    int
	AIRequestsPerMin int // 0 means no rate limit
	NoCache          bool
	IncludeGlobs     string
	ExcludeGlobs     string
	MaxBytes         int64
}

// Result is the outcome of a completed scan.
type Result struct {
	ScanID       string
	Violations   []types.Violation
	Cost         types.ScanCost
	FilesScanned int
	FilesForAI   int
	RuleErrors   []error
	AIErrors     []error
}

// Orchestrator runs one scan. Callers observe it through Progress and
// CostGate and steer it through RespondToCostLimit and Cancel.
type Orchestrator struct {
	opts     Options
	analyzer ai.Analyzer
	st       store.Store
	log      *zap.Logger

	progressCh chan types.ScanProgress
	gateCh     chan cost.Status
	gateResp   chan bool

	mu          sync.Mutex
	state       State
	scanID      string
	gatePending bool
	cancel      context.CancelFunc
}

// New creates an orchestrator. analyzer may be nil for regex-only scans;
// st must be non-nil.
func New(opts Options, analyzer ai.Analyzer, st store.Store, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		opts:       opts,
		analyzer:   analyzer,
		st:         st,
		log:        log,
		progressCh: make(chan types.ScanProgress, 64),
		gateCh:     make(chan cost.Status, 1),
		gateResp:   make(chan bool, 1),
		state:      StateIdle,
		scanID:     uuid.NewString(),
	}
}

// ScanID returns the scan identifier assigned at construction.
func (o *Orchestrator) ScanID() string { return o.scanID }

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Progress delivers ephemeral progress snapshots. Slow consumers may miss
// intermediate snapshots; none of them are persisted.
func (o *Orchestrator) Progress() <-chan types.ScanProgress { return o.progressCh }

// CostGate delivers at most one cost-limit event per scan. After receiving
// it the caller must answer via RespondToCostLimit; the scan stays paused
// until then.
func (o *Orchestrator) CostGate() <-chan cost.Status { return o.gateCh }

// RespondToCostLimit resolves a pending cost gate. continueScan true
// resumes AI analysis with gating disabled for the rest of the scan; false
// stops AI analysis and proceeds with the results so far. Calling it with
// no gate pending is a no-op, so duplicate responses are harmless.
func (o *Orchestrator) RespondToCostLimit(continueScan bool) {
	o.mu.Lock()
	if !o.gatePending {
		o.mu.Unlock()
		return
	}
	o.gatePending = false
	o.mu.Unlock()
	o.gateResp <- continueScan
}

// Cancel requests cancellation. The scan stops at the next unit-of-work
// boundary; a scan cancelled before the merge phase persists nothing.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) emitProgress(scanned, total, found int, current string) {
	p := types.ScanProgress{
		ScanID:          o.scanID,
		FilesScanned:    scanned,
		TotalFiles:      total,
		ViolationsFound: found,
		CurrentFile:     current,
	}
	if total > 0 {
		p.Percentage = float64(scanned) / float64(total) * 100
	}
	select {
	case o.progressCh <- p:
	default:
	}
}

// Run executes the scan end to end. It returns the context error when the
// scan was cancelled and a wrapped store error when persistence failed.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	res := Result{ScanID: o.scanID}
	enabled := enabledSet(o.opts.EnabledControls)

	o.setState(StateRegexPhase)
	fileList, err := files.List(files.WalkConfig{
		Root:            o.opts.Root,
		IncludeGlobs:    o.opts.IncludeGlobs,
		ExcludeGlobs:    o.opts.ExcludeGlobs,
		MaxBytes:        o.opts.MaxBytes,
		DefaultExcludes: true,
	})
	if err != nil {
		o.setState(StateFailed)
		return res, fmt.Errorf("list files: %w", err)
	}
	res.FilesScanned = len(fileList)

	var regexVs []types.Violation
	for i, fm := range fileList {
		if ctx.Err() != nil {
			o.setState(StateCancelled)
			return res, ctx.Err()
		}
		content, err := files.ReadFile(o.opts.Root, fm.Path)
		if err != nil {
			o.log.Warn("skipping unreadable file", zap.String("path", fm.Path), zap.Error(err))
			continue
		}
		vs, errs := rules.Analyze(content, fm.Path, o.frameworkFor(fm.Path), enabled)
		regexVs = append(regexVs, vs...)
		res.RuleErrors = append(res.RuleErrors, errs...)
		o.emitProgress(i+1, len(fileList), len(regexVs), fm.Path)
	}

	o.setState(StateFileSelection)
	sel := selector.New(func(p string) (string, bool) {
		c, err := files.ReadFile(o.opts.Root, p)
		return c, err == nil
	})
	if len(o.opts.Keywords) > 0 {
		sel.Keywords = o.opts.Keywords
	}
	aiFiles := sel.Select(fileList, o.opts.Mode)
	if o.analyzer == nil {
		aiFiles = nil
	}
	res.FilesForAI = len(aiFiles)

	gov := cost.NewGovernor(o.opts.CostLimitUSD, len(aiFiles))
	var llmVs []types.Violation
	if len(aiFiles) > 0 {
		var cancelled bool
		llmVs, cancelled = o.runAIPhase(ctx, aiFiles, gov, &res)
		if cancelled {
			o.setState(StateCancelled)
			return res, ctx.Err()
		}
	}

	if ctx.Err() != nil {
		o.setState(StateCancelled)
		return res, ctx.Err()
	}

	o.setState(StateDedup)
	window := o.opts.MergeWindow
	if window <= 0 {
		window = dedup.DefaultWindow
	}
	merged := dedup.Merge(regexVs, llmVs, window)
	now := time.Now().UTC()
	for i := range merged {
		merged[i].ID = uuid.NewString()
		merged[i].ScanID = o.scanID
		merged[i].Status = types.StatusOpen
		if merged[i].DetectedAt.IsZero() {
			merged[i].DetectedAt = now
		}
	}
	res.Violations = merged
	res.Cost = gov.Cost()

	if err := o.st.SaveViolations(ctx, o.scanID, merged); err != nil {
		o.setState(StateFailed)
		return res, fmt.Errorf("persist violations: %w", err)
	}
	if err := o.st.SaveCost(ctx, o.scanID, res.Cost); err != nil {
		o.setState(StateFailed)
		return res, fmt.Errorf("persist scan cost: %w", err)
	}

	o.setState(StateCompleted)
	return res, nil
}

// runAIPhase analyzes the selected files with bounded concurrency and an
// optional request-per-minute limit. It returns the accumulated LLM
// violations and whether the phase observed a cancellation. A tripped
// cost gate pauses dispatch until the caller answers; "stop" keeps the
// results gathered so far.
func (o *Orchestrator) runAIPhase(ctx context.Context, aiFiles []types.FileMeta, gov *cost.Governor, res *Result) ([]types.Violation, bool) {
	o.setState(StateAIPhase)

	var db cache.DB
	if !o.opts.NoCache {
		db = cache.Load(o.opts.Root)
	} else {
		db = cache.DB{Entries: map[string]cache.Entry{}}
	}

	concurrency := o.opts.AIConcurrency
	if concurrency <= 0 {
		concurrency = defaultAIConcurrency
	}
	sem := semaphore.NewWeighted(int64(concurrency))

	var lim *rate.Limiter
	if rpm := o.opts.AIRequestsPerMin; rpm > 0 {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex // guards llmVs, res.AIErrors, db.Entries
	var llmVs []types.Violation
	catalog := controls.All()

	analyzed := 0
dispatch:
	for _, fm := range aiFiles {
		if ctx.Err() != nil {
			break
		}
		content, err := files.ReadFile(o.opts.Root, fm.Path)
		if err != nil {
			continue
		}
		hash := cache.Hash(content)
		if !o.opts.NoCache {
			mu.Lock()
			entry, hit := db.Entries[fm.Path]
			if hit && entry.Hash == hash {
				// Replay the cached findings so an unchanged file keeps
				// reporting what the AI found last time, without re-billing.
				llmVs = append(llmVs, entry.Violations...)
				mu.Unlock()
				continue
			}
			mu.Unlock()
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break dispatch
		}
		// Check spend only after a slot frees up, so the completed work
		// behind that slot is already recorded.
		if st := gov.Check(); st.Exceeded {
			cont, err := o.waitCostGate(ctx, st)
			if err != nil {
				sem.Release(1)
				break dispatch
			}
			if !cont {
				o.log.Info("AI analysis stopped at cost limit",
					zap.Float64("cost_usd", st.CurrentCost),
					zap.Float64("limit_usd", st.Limit))
				sem.Release(1)
				break dispatch
			}
			gov.Suspend()
		}
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				sem.Release(1)
				break dispatch
			}
		}
		wg.Add(1)
		analyzed++
		go func(fm types.FileMeta, content, hash string) {
			defer wg.Done()
			defer sem.Release(1)

			vs, usage, err := o.analyzer.Analyze(ctx, content, fm.Path, o.frameworkFor(fm.Path), catalog)
			if err != nil {
				mu.Lock()
				res.AIErrors = append(res.AIErrors, fmt.Errorf("%s: %w", fm.Path, err))
				mu.Unlock()
				o.log.Warn("AI analysis failed, skipping file",
					zap.String("path", fm.Path), zap.Error(err))
				return
			}
			gov.Record(usage)
			mu.Lock()
			llmVs = append(llmVs, vs...)
			db.Entries[fm.Path] = cache.Entry{Hash: hash, Violations: vs}
			mu.Unlock()
		}(fm, content, hash)

		mu.Lock()
		found := len(llmVs)
		mu.Unlock()
		o.emitProgress(analyzed, len(aiFiles), found, fm.Path)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return llmVs, true
	}
	if !o.opts.NoCache {
		if err := cache.Save(o.opts.Root, db); err != nil {
			o.log.Warn("could not write analysis cache", zap.Error(err))
		}
	}
	return llmVs, false
}

// waitCostGate publishes the gate event and blocks until the caller
// answers or the scan is cancelled.
func (o *Orchestrator) waitCostGate(ctx context.Context, st cost.Status) (bool, error) {
	o.mu.Lock()
	o.state = StateCostGate
	o.gatePending = true
	o.mu.Unlock()

	select {
	case o.gateCh <- st:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case cont := <-o.gateResp:
		o.setState(StateAIPhase)
		return cont, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (o *Orchestrator) frameworkFor(path string) types.Framework {
	if o.opts.Framework != "" && o.opts.Framework != types.FrameworkUnknown {
		return o.opts.Framework
	}
	return types.FrameworkForPath(path)
}

func enabledSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

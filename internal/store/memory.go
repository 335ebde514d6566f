package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/complyscan/complyscan/internal/types"
)

// MemoryStore is an in-memory Store used by tests and by scans that run
// without a database path.
type MemoryStore struct {
	mu         sync.Mutex
	violations map[string]types.Violation
	fixes      map[string]types.Fix
	costs      map[string]types.ScanCost
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		violations: make(map[string]types.Violation),
		fixes:      make(map[string]types.Fix),
		costs:      make(map[string]types.ScanCost),
	}
}

func (m *MemoryStore) SaveViolations(_ context.Context, scanID string, vs []types.Violation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vs {
		v.ScanID = scanID
		m.violations[v.ID] = v
	}
	return nil
}

func (m *MemoryStore) SaveCost(_ context.Context, scanID string, c types.ScanCost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costs[scanID] = c
	return nil
}

func (m *MemoryStore) SaveFix(_ context.Context, f types.Fix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixes[f.ID] = f
	return nil
}

func (m *MemoryStore) Violations(_ context.Context, f Filter) ([]types.Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Violation
	for _, v := range m.violations {
		if f.ScanID != "" && v.ScanID != f.ScanID {
			continue
		}
		if f.ControlID != "" && v.ControlID != f.ControlID {
			continue
		}
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].LineNumber < out[j].LineNumber
	})
	return out, nil
}

func (m *MemoryStore) ViolationByID(_ context.Context, id string) (types.Violation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.violations[id]
	if !ok {
		return types.Violation{}, ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) UpdateViolationStatus(_ context.Context, id string, status types.ViolationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.violations[id]
	if !ok {
		return ErrNotFound
	}
	v.Status = status
	m.violations[id] = v
	return nil
}

func (m *MemoryStore) UpdateFixApplied(_ context.Context, fixID, appliedBy, commitSHA string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fixes[fixID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	f.AppliedAt = &now
	f.AppliedBy = appliedBy
	f.GitCommitSHA = commitSHA
	m.fixes[fixID] = f
	return nil
}

func (m *MemoryStore) FixesForViolation(_ context.Context, violationID string) ([]types.Fix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Fix
	for _, f := range m.fixes {
		if f.ViolationID == violationID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) Purge(_ context.Context, scanID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if scanID == "" {
		m.violations = make(map[string]types.Violation)
		m.fixes = make(map[string]types.Fix)
		m.costs = make(map[string]types.ScanCost)
		return nil
	}
	removed := make(map[string]bool)
	for id, v := range m.violations {
		if v.ScanID == scanID {
			removed[id] = true
			delete(m.violations, id)
		}
	}
	for id, f := range m.fixes {
		if removed[f.ViolationID] {
			delete(m.fixes, id)
		}
	}
	delete(m.costs, scanID)
	return nil
}

// Cost returns the stored cost for a scan; tests use it directly.
func (m *MemoryStore) Cost(scanID string) (types.ScanCost, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.costs[scanID]
	return c, ok
}

func (m *MemoryStore) Close() error { return nil }

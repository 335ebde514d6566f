// Package store persists violations, fixes, and scan costs. The scanner
// core only depends on the Store interface; the default implementation is
// SQLite.
package store

import (
	"context"
	"errors"

	"github.com/complyscan/complyscan/internal/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Filter narrows violation queries. Zero values match everything.
type Filter struct {
	ScanID    string
	ControlID string
	Status    types.ViolationStatus
}

// Store is the persistence contract the scanner core writes through.
type Store interface {
	SaveViolations(ctx context.Context, scanID string, vs []types.Violation) error
	SaveCost(ctx context.Context, scanID string, c types.ScanCost) error
	SaveFix(ctx context.Context, f types.Fix) error

	Violations(ctx context.Context, f Filter) ([]types.Violation, error)
	ViolationByID(ctx context.Context, id string) (types.Violation, error)
	UpdateViolationStatus(ctx context.Context, id string, status types.ViolationStatus) error
	UpdateFixApplied(ctx context.Context, fixID, appliedBy, commitSHA string) error
	FixesForViolation(ctx context.Context, violationID string) ([]types.Fix, error)

	// Purge deletes violations, their fixes, and cost records for one scan,
	// or for every scan when scanID is empty. This is the only way
	// violation records are ever deleted.
	Purge(ctx context.Context, scanID string) error

	Close() error
}

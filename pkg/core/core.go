package core

import (
	"context"

	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/scan"
	"github.com/complyscan/complyscan/internal/store"
	"github.com/complyscan/complyscan/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
// We can replace these with decoupled structs later without breaking callers.
type (
	Options   = scan.Options
	Result    = scan.Result
	Violation = types.Violation
	Control   = types.Control
	Severity  = types.Severity
	ScanMode  = types.ScanMode
)

// Scan runs a regex-only scan against an in-memory store and returns the
// result. Integrations that need AI analysis, persistence, or cost gating
// should drive scan.Orchestrator directly.
func Scan(ctx context.Context, opts Options) (Result, error) {
	opts.Mode = types.ModeRegexOnly
	opts.NoCache = true
	o := scan.New(opts, nil, store.NewMemory(), nil)
	return o.Run(ctx)
}

// Controls returns the compliance control catalog.
// This is exposed for convenience to avoid importing internals directly.
func Controls() []Control { return controls.All() }

// ControlIDs returns the IDs of the cataloged controls.
func ControlIDs() []string { return controls.IDs() }

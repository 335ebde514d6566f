// Package core provides a small, stable facade over complyscan's internal
// scanner for external integrations. It deliberately re-exports a narrow
// API surface so other tools can depend on a stable import path without
// reaching into internal packages.
//
// Example:
//
//	result, err := core.Scan(context.Background(), core.Options{Root: "."})
//	if err != nil { /* handle */ }
//	for _, v := range result.Violations { fmt.Println(v.FilePath, v.ControlID) }
package core

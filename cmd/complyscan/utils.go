package complyscan

import (
	"path/filepath"

	"github.com/complyscan/complyscan/internal/config"
	"github.com/complyscan/complyscan/internal/store"
	"github.com/complyscan/complyscan/internal/types"
)

// loadConfigs resolves global and repo-local file configs for a scan root.
func loadConfigs(root string) (local, global config.FileConfig) {
	if c, err := config.LoadGlobal(); err == nil {
		global = c
	}
	if c, err := config.LoadLocal(root); err == nil {
		local = c
	}
	return local, global
}

// openStore opens the violations database with CLI > local > global > default
// path precedence.
func openStore(root string, local, global config.FileConfig) (store.Store, error) {
	path := pickString(flagStore, local.StorePath, global.StorePath)
	if path == "" {
		path = filepath.Join(root, ".complyscan.db")
	}
	return store.OpenSQLite(path)
}

func resolveFailOn(local, global config.FileConfig) types.Severity {
	return types.Severity(pickString(flagFailOn, local.FailOn, global.FailOn))
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickFloat(cli float64, local, global *float64) float64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

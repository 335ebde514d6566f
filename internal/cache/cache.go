// Package cache remembers AI analysis results per file so unchanged files
// are neither re-billed nor silently under-reported on the next scan: a
// hit replays the violations the AI found last time. The cache only ever
// short-circuits AI analysis; the deterministic rule phase always runs in
// full.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/complyscan/complyscan/internal/types"
)

// Entry records one analyzed file: the content hash the AI saw and the
// violations it reported for that content.
type Entry struct {
	Hash       string            `json:"hash"`
	Violations []types.Violation `json:"violations,omitempty"`
}

// DB maps path relative to the project root to its cached analysis.
type DB struct {
	Entries map[string]Entry `json:"entries"`
}

func defaultPath(root string) string {
	// prefer .git so the cache never gets committed
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, "complyscan_aicache.json")
	}
	return filepath.Join(root, ".complyscan_aicache.json")
}

// Load reads the cache; a missing, corrupt, or old-format file yields an
// empty cache.
func Load(root string) DB {
	db := DB{Entries: map[string]Entry{}}
	b, err := os.ReadFile(defaultPath(root))
	if err != nil {
		return db
	}
	if err := json.Unmarshal(b, &db); err != nil || db.Entries == nil {
		db.Entries = map[string]Entry{}
	}
	return db
}

// Save writes the cache back to disk.
func Save(root string, db DB) error {
	b, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(defaultPath(root), b, 0644)
}

// Hash returns the cache key for file content.
func Hash(content string) string {
	if content == "" {
		return "0000000000000000"
	}
	sum := xxhash.Sum64String(content)
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}

// Package files lists and reads the source files a scan operates on.
// Traversal applies default excludes, ignore patterns, glob filters, and a
// binary/MIME sniff so detectors only ever see text.
package files

import (
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"

	"github.com/complyscan/complyscan/internal/types"
)

// IgnoreFileName is the repo-local ignore file consulted during walks.
const IgnoreFileName = ".complyscanignore"

// WalkConfig controls file selection during traversal.
type WalkConfig struct {
	Root            string
	IncludeGlobs    string // comma-separated, positive filter when set
	ExcludeGlobs    string // comma-separated, subtracted last
	MaxBytes        int64
	DefaultExcludes bool
}

var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"coverage":     true,
	"bin":          true,
	"obj":          true,
}

var defaultExcludeFileSuffixes = []string{
	".min.js", ".map",
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg",
	".pdf", ".zip", ".gz", ".tar", ".tgz", ".7z",
	".jar", ".class", ".exe", ".dll", ".so",
	".wasm", ".pyc",
	".lock",
}

// List walks the working tree and returns eligible files in traversal
// order. Content is not retained; use ReadFile when a phase needs it.
func List(cfg WalkConfig) ([]types.FileMeta, error) {
	ign, _ := LoadIgnore(filepath.Join(cfg.Root, IgnoreFileName))

	var out []types.FileMeta
	err := filepath.WalkDir(cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if cfg.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(cfg.Root, p)
		if !allowedByGlobs(rel, cfg.IncludeGlobs, cfg.ExcludeGlobs) {
			return nil
		}
		if ign.Match(rel) {
			return nil
		}
		info, _ := d.Info()
		if info == nil {
			return nil
		}
		if cfg.MaxBytes > 0 && info.Size() > cfg.MaxBytes {
			return nil
		}
		if cfg.DefaultExcludes && isDefaultFileExcluded(strings.ToLower(rel)) {
			return nil
		}
		if looksNonText(p, rel) {
			return nil
		}
		out = append(out, types.FileMeta{Path: rel, Size: info.Size()})
		return nil
	})
	return out, err
}

// ReadFile reads one file relative to root.
func ReadFile(root, rel string) (string, error) {
	b, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".git")
}

func isDefaultFileExcluded(lowerRel string) bool {
	// never scan our own artifacts (config, ignore file, analysis cache)
	if strings.HasPrefix(filepath.Base(lowerRel), ".complyscan") {
		return true
	}
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	return false
}

// looksNonText sniffs a small prefix for NUL bytes and checks the
// extension MIME type to skip clearly non-text content.
func looksNonText(abs, rel string) bool {
	if ct := mime.TypeByExtension(filepath.Ext(rel)); ct != "" {
		if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
			return true
		}
	}
	f, err := os.Open(abs)
	if err != nil {
		return true
	}
	defer f.Close()
	buf := make([]byte, 800)
	n, _ := f.Read(buf)
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return true
		}
	}
	return false
}

func allowedByGlobs(rel, includes, excludes string) bool {
	rp := strings.ReplaceAll(rel, "\\", "/")
	inc := parseGlobsList(includes)
	exc := parseGlobsList(excludes)
	if len(inc) > 0 && !matchAnyGlob(rp, inc) {
		return false
	}
	if len(exc) > 0 && matchAnyGlob(rp, exc) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchAnyGlob(path string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, path); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

// Package apply writes an approved fix into the working tree and commits
// it. Applying is deliberately conservative: it refuses dirty worktrees
// and refuses fixes whose original code no longer matches the file.
package apply

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/complyscan/complyscan/internal/types"
)

var (
	// ErrDirtyWorktree is returned when uncommitted changes exist.
	ErrDirtyWorktree = errors.New("worktree has uncommitted changes")
	// ErrStaleOriginal is returned when the fix's original code is no
	// longer present in the target file.
	ErrStaleOriginal = errors.New("original code not found in file; fix is stale")
	// ErrManualFix is returned for fixes that carry no usable code change.
	ErrManualFix = errors.New("fix requires manual remediation and cannot be applied")
)

// Author identifies the committer recorded on applied fixes.
type Author struct {
	Name  string
	Email string
}

// Apply patches the violating file with the fix and commits the change.
// It returns the commit SHA. The caller is responsible for recording the
// SHA against the fix afterwards.
func Apply(root string, v types.Violation, f types.Fix, author Author) (string, error) {
	if f.TrustLevel == types.TrustManual || strings.TrimSpace(f.FixedCode) == "" {
		return "", ErrManualFix
	}

	repo, err := git.PlainOpen(root)
	if err != nil {
		return "", fmt.Errorf("open git repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("read worktree status: %w", err)
	}
	if !status.IsClean() {
		return "", ErrDirtyWorktree
	}

	abs := filepath.Join(root, v.FilePath)
	b, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", v.FilePath, err)
	}
	content := string(b)
	if !strings.Contains(content, f.OriginalCode) {
		return "", ErrStaleOriginal
	}
	patched := strings.Replace(content, f.OriginalCode, f.FixedCode, 1)

	info, _ := os.Stat(abs)
	mode := os.FileMode(0644)
	if info != nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(abs, []byte(patched), mode); err != nil {
		return "", fmt.Errorf("write %s: %w", v.FilePath, err)
	}

	if _, err := wt.Add(v.FilePath); err != nil {
		return "", fmt.Errorf("stage %s: %w", v.FilePath, err)
	}
	msg := fmt.Sprintf("complyscan: fix %s violation in %s", v.ControlID, v.FilePath)
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("commit fix: %w", err)
	}
	return hash.String(), nil
}

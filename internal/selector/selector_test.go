package selector

import (
	"testing"

	"github.com/complyscan/complyscan/internal/types"
	"github.com/stretchr/testify/assert"
)

func files(paths ...string) []types.FileMeta {
	out := make([]types.FileMeta, len(paths))
	for i, p := range paths {
		out[i] = types.FileMeta{Path: p}
	}
	return out
}

func TestRegexOnlySelectsNothing(t *testing.T) {
	s := New(nil)
	got := s.Select(files("auth/login.py", "readme.md"), types.ModeRegexOnly)
	assert.Empty(t, got)
}

func TestAnalyzeAllSelectsEverything(t *testing.T) {
	s := New(nil)
	in := files("auth/login.py", "readme.md", "util/strings.go")
	got := s.Select(in, types.ModeAnalyzeAll)
	assert.Equal(t, in, got)
}

func TestSmartSelectsStrictSubset(t *testing.T) {
	content := map[string]string{
		"handlers.py": "def view(request):\n    session = get_session()\n",
		"shapes.py":   "def area(w, h):\n    return w * h\n",
	}
	s := New(func(p string) (string, bool) {
		c, ok := content[p]
		return c, ok
	})

	in := files("auth/login.py", "handlers.py", "shapes.py")
	got := s.Select(in, types.ModeSmart)

	assert.Less(t, len(got), len(in), "smart mode must be a strict subset when a neutral file exists")
	paths := map[string]bool{}
	for _, f := range got {
		paths[f.Path] = true
	}
	assert.True(t, paths["auth/login.py"], "path keyword match")
	assert.True(t, paths["handlers.py"], "content keyword match")
	assert.False(t, paths["shapes.py"], "neutral file must not be selected")
}

func TestSmartIsDeterministic(t *testing.T) {
	s := New(nil)
	in := files("api/users.py", "docs/notes.txt", "db/models.py")
	a := s.Select(in, types.ModeSmart)
	b := s.Select(in, types.ModeSmart)
	assert.Equal(t, a, b)
}

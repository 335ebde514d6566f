package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLocal(t *testing.T) {
	root := t.TempDir()
	yml := "mode: smart\ncost_limit_usd: 2.5\nmerge_window: 5\nsmart_keywords: [auth, crypto]\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ".complyscan.yml"), []byte(yml), 0644))

	cfg, err := LoadLocal(root)
	require.NoError(t, err)
	require.NotNil(t, cfg.Mode)
	assert.Equal(t, "smart", *cfg.Mode)
	require.NotNil(t, cfg.CostLimitUSD)
	assert.Equal(t, 2.5, *cfg.CostLimitUSD)
	require.NotNil(t, cfg.MergeWindow)
	assert.Equal(t, 5, *cfg.MergeWindow)
	assert.Equal(t, []string{"auth", "crypto"}, cfg.SmartKeywords)
	assert.Nil(t, cfg.FailOn)
}

func TestLoadLocalMissing(t *testing.T) {
	_, err := LoadLocal(t.TempDir())
	assert.Error(t, err)
}

// Package config loads the on-disk YAML configuration. Precedence is
// CLI flags over repo-local config over global config; pointer fields
// distinguish "unset" from zero values.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for complyscan.
type FileConfig struct {
	Mode             *string  `yaml:"mode"` // regex_only | smart | analyze_all
	Framework        *string  `yaml:"framework"`
	Include          *string  `yaml:"include"`
	Exclude          *string  `yaml:"exclude"`
	MaxBytes         *int64   `yaml:"max_bytes"`
	Controls         *string  `yaml:"controls"` // comma-separated control IDs
	CostLimitUSD     *float64 `yaml:"cost_limit_usd"`
	MergeWindow      *int     `yaml:"merge_window"`
	SmartKeywords    []string `yaml:"smart_keywords"`
	AIModel          *string  `yaml:"ai_model"`
	AIConcurrency    *int     `yaml:"ai_concurrency"`
	AIRequestsPerMin *int     `yaml:"ai_requests_per_minute"`
	NoCache          *bool    `yaml:"no_cache"`
	FailOn           *string  `yaml:"fail_on"`
	StorePath        *string  `yaml:"store_path"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadLocal searches for a repo-local config file in the given root.
func LoadLocal(root string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range []string{".complyscan.yml", ".complyscan.yaml", "complyscan.yml", "complyscan.yaml"} {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// LoadGlobal loads the global config from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return cfg, errors.New("no config dir")
	}
	p := filepath.Join(base, "complyscan", "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

package types

import (
	"path/filepath"
	"strings"
)

// Framework is the detected or declared web framework of a file. Detector
// pattern sets are keyed on this tag rather than on raw framework strings.
type Framework string

const (
	FrameworkDjango    Framework = "django"
	FrameworkFlask     Framework = "flask"
	FrameworkExpress   Framework = "express"
	FrameworkNextReact Framework = "nextreact"
	FrameworkUnknown   Framework = "unknown"
)

// ScanMode selects how much AI analysis a scan performs.
type ScanMode string

const (
	ModeRegexOnly  ScanMode = "regex_only"
	ModeSmart      ScanMode = "smart"
	ModeAnalyzeAll ScanMode = "analyze_all"
)

// ParseFramework maps a framework name to its tagged variant. Unrecognized
// names map to FrameworkUnknown.
func ParseFramework(s string) Framework {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "django":
		return FrameworkDjango
	case "flask":
		return FrameworkFlask
	case "express", "node", "nodejs":
		return FrameworkExpress
	case "next", "nextjs", "react", "nextreact", "next.js":
		return FrameworkNextReact
	}
	return FrameworkUnknown
}

// ParseScanMode maps a mode name to its variant, defaulting to regex_only.
func ParseScanMode(s string) ScanMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "smart":
		return ModeSmart
	case "analyze_all", "all":
		return ModeAnalyzeAll
	}
	return ModeRegexOnly
}

// FrameworkForPath infers a default framework family from a file extension.
// Used when no framework was declared for a file.
func FrameworkForPath(path string) Framework {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return FrameworkFlask
	case ".js", ".mjs", ".cjs":
		return FrameworkExpress
	case ".ts", ".tsx", ".jsx":
		return FrameworkNextReact
	}
	return FrameworkUnknown
}

// IsPythonFamily reports whether the framework uses Python-style patterns.
func (f Framework) IsPythonFamily() bool {
	return f == FrameworkDjango || f == FrameworkFlask
}

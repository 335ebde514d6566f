package types

import "time"

// Severity is a coarse-grained risk level for a violation.
type Severity string

const (
	SevCritical Severity = "critical"
	SevHigh     Severity = "high"
	SevMed      Severity = "medium"
	SevLow      Severity = "low"
)

// Rank orders severities so callers can compare them (critical > high > medium > low).
func (s Severity) Rank() int {
	switch s {
	case SevCritical:
		return 4
	case SevHigh:
		return 3
	case SevMed:
		return 2
	case SevLow:
		return 1
	}
	return 0
}

// MaxSeverity returns the stricter of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// DetectionMethod records the provenance of a violation.
type DetectionMethod string

const (
	MethodRegex  DetectionMethod = "regex"
	MethodLLM    DetectionMethod = "llm"
	MethodHybrid DetectionMethod = "hybrid"
)

// ViolationStatus is the lifecycle state of a violation record.
type ViolationStatus string

const (
	StatusOpen      ViolationStatus = "open"
	StatusFixed     ViolationStatus = "fixed"
	StatusDismissed ViolationStatus = "dismissed"
)

// TrustLevel is how much human review a generated fix requires before it
// may be applied.
type TrustLevel string

const (
	TrustAuto   TrustLevel = "auto"
	TrustReview TrustLevel = "review"
	TrustManual TrustLevel = "manual"
)

// Control is an immutable catalog entry describing a compliance requirement.
type Control struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Requirement string `json:"requirement"`
	Category    string `json:"category"`
}

// Violation is a detected instance of non-compliance with a control.
// ConfidenceScore is only set for llm and hybrid detections (0-100);
// hybrid violations carry both RegexReasoning and LLMReasoning.
type Violation struct {
	ID              string          `json:"id"`
	ScanID          string          `json:"scan_id"`
	ControlID       string          `json:"control_id"`
	Severity        Severity        `json:"severity"`
	Description     string          `json:"description"`
	FilePath        string          `json:"file_path"`
	LineNumber      int             `json:"line_number"`
	CodeSnippet     string          `json:"code_snippet,omitempty"`
	Status          ViolationStatus `json:"status"`
	DetectionMethod DetectionMethod `json:"detection_method"`
	ConfidenceScore *int            `json:"confidence_score,omitempty"`
	LLMReasoning    string          `json:"llm_reasoning,omitempty"`
	RegexReasoning  string          `json:"regex_reasoning,omitempty"`
	DetectedAt      time.Time       `json:"detected_at"`
}

// Fix is a proposed remediation for a single violation. AppliedAt and
// GitCommitSHA are set only by the apply step, never by fix generation.
type Fix struct {
	ID           string     `json:"id"`
	ViolationID  string     `json:"violation_id"`
	OriginalCode string     `json:"original_code"`
	FixedCode    string     `json:"fixed_code"`
	Explanation  string     `json:"explanation"`
	TrustLevel   TrustLevel `json:"trust_level"`
	AppliedAt    *time.Time `json:"applied_at,omitempty"`
	AppliedBy    string     `json:"applied_by,omitempty"`
	GitCommitSHA string     `json:"git_commit_sha,omitempty"`
}

// ScanCost aggregates AI spend for one scan. Monotonically increasing
// while the scan runs, immutable once it ends.
type ScanCost struct {
	FilesAnalyzedWithLLM int     `json:"files_analyzed_with_llm"`
	InputTokens          int64   `json:"input_tokens"`
	OutputTokens         int64   `json:"output_tokens"`
	CacheReadTokens      int64   `json:"cache_read_tokens"`
	CacheWriteTokens     int64   `json:"cache_write_tokens"`
	TotalCostUSD         float64 `json:"total_cost_usd"`
}

// ScanProgress is an ephemeral progress snapshot; it is signalled to the
// caller and never persisted.
type ScanProgress struct {
	ScanID          string  `json:"scan_id"`
	FilesScanned    int     `json:"files_scanned"`
	TotalFiles      int     `json:"total_files"`
	ViolationsFound int     `json:"violations_found"`
	CurrentFile     string  `json:"current_file"`
	Percentage      float64 `json:"percentage"`
}

// FileMeta identifies one file eligible for scanning.
type FileMeta struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

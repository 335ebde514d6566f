// Package audit keeps an append-only JSONL history of scans, stored
// inside .git so it never gets committed.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/complyscan/complyscan/internal/types"
)

type ScanRecord struct {
	Timestamp       time.Time      `json:"timestamp"`
	ScanID          string         `json:"scan_id"`
	Root            string         `json:"root"`
	Mode            string         `json:"mode"`
	TotalViolations int            `json:"total_violations"`
	SeverityCounts  map[string]int `json:"severity_counts"`
	MethodCounts    map[string]int `json:"method_counts"`
	FilesScanned    int            `json:"files_scanned"`
	FilesAnalyzedAI int            `json:"files_analyzed_ai"`
	CostUSD         float64        `json:"cost_usd"`
	Duration        string         `json:"duration"`
}

type AuditLog struct {
	logPath string
}

func NewAuditLog(root string) *AuditLog {
	gitDir := filepath.Join(root, ".git")
	logPath := filepath.Join(root, ".complyscan_audit.jsonl")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		logPath = filepath.Join(gitDir, "complyscan_audit.jsonl")
	}
	return &AuditLog{logPath: logPath}
}

// LoadHistory returns recorded scans, newest first. Corrupt lines are
// skipped.
func (a *AuditLog) LoadHistory() ([]ScanRecord, error) {
	f, err := os.Open(a.logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []ScanRecord
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record ScanRecord
		if err := decoder.Decode(&record); err != nil {
			continue
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (a *AuditLog) LogScan(record ScanRecord) error {
	if record.ScanID == "" {
		record.ScanID = fmt.Sprintf("scan_%d", time.Now().Unix())
	}

	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// CreateScanRecord summarizes one finished scan for the log.
func CreateScanRecord(
	root string,
	scanID string,
	mode types.ScanMode,
	violations []types.Violation,
	cost types.ScanCost,
	filesScanned int,
	duration time.Duration,
) ScanRecord {
	severityCounts := make(map[string]int)
	methodCounts := make(map[string]int)
	for _, v := range violations {
		severityCounts[string(v.Severity)]++
		methodCounts[string(v.DetectionMethod)]++
	}

	return ScanRecord{
		Timestamp:       time.Now(),
		ScanID:          scanID,
		Root:            root,
		Mode:            string(mode),
		TotalViolations: len(violations),
		SeverityCounts:  severityCounts,
		MethodCounts:    methodCounts,
		FilesScanned:    filesScanned,
		FilesAnalyzedAI: cost.FilesAnalyzedWithLLM,
		CostUSD:         cost.TotalCostUSD,
		Duration:        duration.String(),
	}
}

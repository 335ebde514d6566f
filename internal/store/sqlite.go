package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/complyscan/complyscan/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS violations (
	id               TEXT PRIMARY KEY,
	scan_id          TEXT NOT NULL,
	control_id       TEXT NOT NULL,
	severity         TEXT NOT NULL,
	description      TEXT NOT NULL,
	file_path        TEXT NOT NULL,
	line_number      INTEGER NOT NULL,
	code_snippet     TEXT,
	status           TEXT NOT NULL,
	detection_method TEXT NOT NULL,
	confidence_score INTEGER,
	llm_reasoning    TEXT,
	regex_reasoning  TEXT,
	detected_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_violations_scan ON violations(scan_id);
CREATE INDEX IF NOT EXISTS idx_violations_status ON violations(status);

CREATE TABLE IF NOT EXISTS fixes (
	id             TEXT PRIMARY KEY,
	violation_id   TEXT NOT NULL,
	original_code  TEXT NOT NULL,
	fixed_code     TEXT NOT NULL,
	explanation    TEXT,
	trust_level    TEXT NOT NULL,
	applied_at     TIMESTAMP,
	applied_by     TEXT,
	git_commit_sha TEXT
);
CREATE INDEX IF NOT EXISTS idx_fixes_violation ON fixes(violation_id);

CREATE TABLE IF NOT EXISTS scan_costs (
	scan_id                 TEXT PRIMARY KEY,
	files_analyzed_with_llm INTEGER NOT NULL,
	input_tokens            INTEGER NOT NULL,
	output_tokens           INTEGER NOT NULL,
	cache_read_tokens       INTEGER NOT NULL,
	cache_write_tokens      INTEGER NOT NULL,
	total_cost_usd          REAL NOT NULL
);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveViolations(ctx context.Context, scanID string, vs []types.Violation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO violations
		(id, scan_id, control_id, severity, description, file_path, line_number,
		 code_snippet, status, detection_method, confidence_score, llm_reasoning,
		 regex_reasoning, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range vs {
		var conf any
		if v.ConfidenceScore != nil {
			conf = *v.ConfidenceScore
		}
		if _, err := stmt.ExecContext(ctx,
			v.ID, scanID, v.ControlID, string(v.Severity), v.Description,
			v.FilePath, v.LineNumber, v.CodeSnippet, string(v.Status),
			string(v.DetectionMethod), conf, v.LLMReasoning, v.RegexReasoning,
			v.DetectedAt); err != nil {
			return fmt.Errorf("insert violation %s: %w", v.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveCost(ctx context.Context, scanID string, c types.ScanCost) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO scan_costs
		(scan_id, files_analyzed_with_llm, input_tokens, output_tokens,
		 cache_read_tokens, cache_write_tokens, total_cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scanID, c.FilesAnalyzedWithLLM, c.InputTokens, c.OutputTokens,
		c.CacheReadTokens, c.CacheWriteTokens, c.TotalCostUSD)
	return err
}

func (s *SQLiteStore) SaveFix(ctx context.Context, f types.Fix) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO fixes
		(id, violation_id, original_code, fixed_code, explanation, trust_level,
		 applied_at, applied_by, git_commit_sha)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ViolationID, f.OriginalCode, f.FixedCode, f.Explanation,
		string(f.TrustLevel), f.AppliedAt, f.AppliedBy, f.GitCommitSHA)
	return err
}

func (s *SQLiteStore) Violations(ctx context.Context, f Filter) ([]types.Violation, error) {
	q := `SELECT id, scan_id, control_id, severity, description, file_path,
		line_number, code_snippet, status, detection_method, confidence_score,
		llm_reasoning, regex_reasoning, detected_at FROM violations WHERE 1=1`
	var args []any
	if f.ScanID != "" {
		q += " AND scan_id = ?"
		args = append(args, f.ScanID)
	}
	if f.ControlID != "" {
		q += " AND control_id = ?"
		args = append(args, f.ControlID)
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, string(f.Status))
	}
	q += " ORDER BY file_path, line_number"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Violation
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ViolationByID(ctx context.Context, id string) (types.Violation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, scan_id, control_id, severity,
		description, file_path, line_number, code_snippet, status,
		detection_method, confidence_score, llm_reasoning, regex_reasoning,
		detected_at FROM violations WHERE id = ?`, id)
	v, err := scanViolation(row)
	if err == sql.ErrNoRows {
		return types.Violation{}, ErrNotFound
	}
	return v, err
}

func (s *SQLiteStore) UpdateViolationStatus(ctx context.Context, id string, status types.ViolationStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE violations SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateFixApplied(ctx context.Context, fixID, appliedBy, commitSHA string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE fixes
		SET applied_at = ?, applied_by = ?, git_commit_sha = ? WHERE id = ?`,
		time.Now().UTC(), appliedBy, commitSHA, fixID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) FixesForViolation(ctx context.Context, violationID string) ([]types.Fix, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, violation_id, original_code,
		fixed_code, explanation, trust_level, applied_at, applied_by,
		git_commit_sha FROM fixes WHERE violation_id = ?`, violationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Fix
	for rows.Next() {
		var f types.Fix
		var appliedAt sql.NullTime
		var appliedBy, sha sql.NullString
		if err := rows.Scan(&f.ID, &f.ViolationID, &f.OriginalCode, &f.FixedCode,
			&f.Explanation, &f.TrustLevel, &appliedAt, &appliedBy, &sha); err != nil {
			return nil, err
		}
		if appliedAt.Valid {
			t := appliedAt.Time
			f.AppliedAt = &t
		}
		f.AppliedBy = appliedBy.String
		f.GitCommitSHA = sha.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Purge(ctx context.Context, scanID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if scanID == "" {
		for _, q := range []string{`DELETE FROM fixes`, `DELETE FROM violations`, `DELETE FROM scan_costs`} {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return err
			}
		}
		return tx.Commit()
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fixes WHERE violation_id IN (SELECT id FROM violations WHERE scan_id = ?)`, scanID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM violations WHERE scan_id = ?`, scanID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_costs WHERE scan_id = ?`, scanID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanViolation(r rowScanner) (types.Violation, error) {
	var v types.Violation
	var conf sql.NullInt64
	var snippet, llmR, regexR sql.NullString
	err := r.Scan(&v.ID, &v.ScanID, &v.ControlID, &v.Severity, &v.Description,
		&v.FilePath, &v.LineNumber, &snippet, &v.Status, &v.DetectionMethod,
		&conf, &llmR, &regexR, &v.DetectedAt)
	if err != nil {
		return v, err
	}
	if conf.Valid {
		c := int(conf.Int64)
		v.ConfidenceScore = &c
	}
	v.CodeSnippet = snippet.String
	v.LLMReasoning = llmR.String
	v.RegexReasoning = regexR.String
	return v, nil
}

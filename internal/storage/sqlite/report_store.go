// Package sqlite persists audit reports to a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_reports (
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	audited_at TIMESTAMP NOT NULL,
	screenshot_uri TEXT,
	report TEXT NOT NULL,
	PRIMARY KEY (run_id, url)
);

CREATE INDEX IF NOT EXISTS idx_audit_reports_audited_at ON audit_reports(audited_at);
`

// ReportStore writes reports into SQLite. It implements audit.Sink.
type ReportStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*ReportStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite.path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &ReportStore{db: db}, nil
}

// Close closes the database.
func (s *ReportStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite database: %w", err)
	}
	return nil
}

// Persist writes all reports of the run in one transaction.
func (s *ReportStore) Persist(ctx context.Context, runID string, reports []audit.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return audit.NewError(audit.KindPersist, "", "begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO audit_reports
		(run_id, url, audited_at, screenshot_uri, report)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return audit.NewError(audit.KindPersist, "", "prepare insert", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, r := range reports {
		body, err := json.Marshal(r)
		if err != nil {
			return audit.NewError(audit.KindPersist, r.URL, "marshal report", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, r.URL, r.AuditedAt.UTC(), r.ScreenshotURI, string(body)); err != nil {
			return audit.NewError(audit.KindPersist, r.URL, "insert report", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return audit.NewError(audit.KindPersist, "", "commit transaction", err)
	}
	return nil
}

// Load returns the stored reports of a run ordered by audit time.
func (s *ReportStore) Load(ctx context.Context, runID string) ([]audit.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report FROM audit_reports WHERE run_id = ? ORDER BY audited_at, url`, runID)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []audit.Report
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r audit.Report
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

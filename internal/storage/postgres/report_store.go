// Package postgres persists audit reports to Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

const defaultTable = "audit_reports"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for report rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// AutoMigrate creates the table on startup when it does not exist.
	AutoMigrate bool
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// ReportStore writes one row per audit report. It implements audit.Sink.
type ReportStore struct {
	pool  execCloser
	table string
}

// NewReportStore connects to Postgres using cfg.
func NewReportStore(ctx context.Context, cfg Config) (*ReportStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &ReportStore{pool: pool, table: table}
	if cfg.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return store, nil
}

// NewReportStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewReportStoreWithPool(pool execCloser, table string) (*ReportStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &ReportStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *ReportStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the report table if needed.
func (s *ReportStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	audited_at TIMESTAMPTZ NOT NULL,
	screenshot_uri TEXT,
	report JSONB NOT NULL,
	PRIMARY KEY (run_id, url)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s table: %w", s.table, err)
	}
	return nil
}

// Persist upserts every report of the run in one transaction, so a run is
// stored whole or not at all.
func (s *ReportStore) Persist(ctx context.Context, runID string, reports []audit.Report) error {
	if s == nil || s.pool == nil {
		return audit.NewError(audit.KindPersist, "", "report store is not configured", nil)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	url,
	audited_at,
	screenshot_uri,
	report
) VALUES (
	$1,$2,$3,$4,$5
)
ON CONFLICT (run_id, url) DO UPDATE
SET audited_at = EXCLUDED.audited_at,
	screenshot_uri = EXCLUDED.screenshot_uri,
	report = EXCLUDED.report`, s.table)

	if len(reports) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return audit.NewError(audit.KindPersist, "", "begin transaction", err)
	}
	for _, r := range reports {
		body, err := json.Marshal(r)
		if err != nil {
			_ = tx.Rollback(ctx)
			return audit.NewError(audit.KindPersist, r.URL, "marshal report", err)
		}
		if _, err := tx.Exec(ctx, query, runID, r.URL, r.AuditedAt, r.ScreenshotURI, body); err != nil {
			_ = tx.Rollback(ctx)
			return audit.NewError(audit.KindPersist, r.URL, "insert report", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return audit.NewError(audit.KindPersist, "", "commit reports", err)
	}
	return nil
}

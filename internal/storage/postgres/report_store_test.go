package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

func sampleReports() []audit.Report {
	now := time.Unix(1700000000, 0).UTC()
	return []audit.Report{
		{URL: "https://example.com/", RunID: "run-1", AuditedAt: now, ScreenshotURI: "gs://bucket/run-1/a.png", JSErrors: []string{}},
		{URL: "https://example.com/about", RunID: "run-1", AuditedAt: now.Add(time.Second), JSErrors: []string{"boom"}},
	}
}

func TestPersistInsertsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithPool(mock, "audit_reports")
	require.NoError(t, err)

	reports := sampleReports()
	mock.ExpectBegin()
	for _, r := range reports {
		body, err := json.Marshal(r)
		require.NoError(t, err)
		mock.ExpectExec("INSERT INTO audit_reports").
			WithArgs("run-1", r.URL, r.AuditedAt, r.ScreenshotURI, body).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, store.Persist(context.Background(), "run-1", reports))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistWrapsExecErrors(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_reports").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO audit_reports").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = store.Persist(context.Background(), "run-1", sampleReports())
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrPersist)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistCommitFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_reports").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO audit_reports").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err = store.Persist(context.Background(), "run-1", sampleReports())
	assert.ErrorIs(t, err, audit.ErrPersist)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistBeginFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	err = store.Persist(context.Background(), "run-1", sampleReports())
	assert.ErrorIs(t, err, audit.ErrPersist)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistEmptyRunSkipsTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithPool(mock, "")
	require.NoError(t, err)

	require.NoError(t, store.Persist(context.Background(), "run-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewReportStoreWithPool(mock, "reports_v2")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reports_v2").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewReportStoreValidation(t *testing.T) {
	t.Parallel()

	_, err := NewReportStoreWithPool(nil, "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewReportStoreWithPool(mock, "bad;table")
	require.Error(t, err)

	_, err = NewReportStore(context.Background(), Config{})
	require.Error(t, err)
}

func TestPersistWithoutPool(t *testing.T) {
	t.Parallel()

	var store *ReportStore
	err := store.Persist(context.Background(), "run-1", nil)
	assert.ErrorIs(t, err, audit.ErrPersist)
	store.Close()
}

// Package sink persists the reports of a run.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"path"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// DefaultObjectName is the document written for each run.
const DefaultObjectName = "results.json"

// JSONSink writes all reports of a run as one pretty-printed JSON array to
// <prefix>/<run_id>/<object>.
type JSONSink struct {
	store      audit.BlobStore
	prefix     string
	objectName string
	logger     *zap.Logger
}

// NewJSONSink creates a JSONSink. An empty objectName uses DefaultObjectName.
func NewJSONSink(store audit.BlobStore, prefix, objectName string, logger *zap.Logger) *JSONSink {
	if objectName == "" {
		objectName = DefaultObjectName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONSink{store: store, prefix: prefix, objectName: objectName, logger: logger}
}

// ObjectPath returns where the document for runID is written.
func (s *JSONSink) ObjectPath(runID string) string {
	return path.Join(s.prefix, runID, s.objectName)
}

// Persist implements audit.Sink.
func (s *JSONSink) Persist(ctx context.Context, runID string, reports []audit.Report) error {
	if reports == nil {
		reports = []audit.Report{}
	}
	body, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return audit.NewError(audit.KindPersist, "", "encode reports", err)
	}
	uri, err := s.store.PutObject(ctx, s.ObjectPath(runID), "application/json", bytes.NewReader(body))
	if err != nil {
		return audit.NewError(audit.KindPersist, "", "write results document", err)
	}
	s.logger.Info("Results saved",
		zap.String("run_id", runID),
		zap.String("uri", uri),
		zap.Int("reports", len(reports)),
	)
	return nil
}

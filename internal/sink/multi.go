package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// Multi fans a run out to several sinks. Every sink is attempted even when
// an earlier one fails.
type Multi []audit.Sink

// Persist implements audit.Sink.
func (m Multi) Persist(ctx context.Context, runID string, reports []audit.Report) error {
	var errs []error
	for i, s := range m {
		if s == nil {
			continue
		}
		if err := s.Persist(ctx, runID, reports); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

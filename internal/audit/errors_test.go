package audit_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := audit.NewError(audit.KindNavigationTimeout, "https://example.com", "page did not settle", context.DeadlineExceeded)
	wrapped := fmt.Errorf("audit url: %w", err)

	assert.ErrorIs(t, wrapped, audit.ErrNavigationTimeout)
	assert.NotErrorIs(t, wrapped, audit.ErrAuditEngine)
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.Equal(t, audit.KindNavigationTimeout, audit.KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := audit.NewError(audit.KindAuditEngine, "https://example.com", "lighthouse exited", errors.New("exit status 1"))
	assert.Equal(t, "AUDIT_ENGINE_FAILED: lighthouse exited: exit status 1", err.Error())

	bare := &audit.Error{Kind: audit.KindPersist}
	assert.Equal(t, "PERSIST_FAILED", bare.Error())
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, audit.Kind(""), audit.KindOf(errors.New("boom")))
	assert.Equal(t, audit.Kind(""), audit.KindOf(nil))
}

func TestErrorAs(t *testing.T) {
	err := fmt.Errorf("open: %w", audit.NewError(audit.KindSessionLaunch, "https://a.test", "", errors.New("no chrome")))
	var target *audit.Error
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "https://a.test", target.URL)
}

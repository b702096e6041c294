package lighthouse_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
	"github.com/JakeFAU/realtime-site-auditor/internal/lighthouse"
)

func fixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "lhr.json"))
	require.NoError(t, err)
	return data
}

var endpoint = audit.Endpoint{Port: 9333, WebSocketURL: "ws://127.0.0.1:9333/devtools/browser/x"}

func TestAuditInvokesEngineAgainstEndpoint(t *testing.T) {
	runner := new(lighthouse.MockRunner)
	wantArgs := []string{
		"https://example.com/",
		"--port=9333",
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--only-categories=seo",
	}
	runner.On("Run", mock.Anything, "lighthouse", wantArgs).Return(fixture(t), nil, nil).Once()

	c := lighthouse.New(lighthouse.Config{Categories: []audit.Category{audit.CategorySEO}}, runner, zap.NewNop())
	raw, err := c.Audit(context.Background(), "https://example.com/", endpoint)
	require.NoError(t, err)
	runner.AssertExpectations(t)

	assert.Len(t, raw, 4)
	lcp, ok := raw.Lookup("largest-contentful-paint")
	require.True(t, ok)
	require.NotNil(t, lcp.NumericValue)
	assert.InDelta(t, 2345.6, *lcp.NumericValue, 1e-9)

	inp, ok := raw.Lookup("interaction-to-next-paint")
	require.True(t, ok)
	assert.Nil(t, inp.Score)
	assert.Nil(t, inp.NumericValue)

	_, ok = raw.Lookup("cumulative-layout-shift")
	assert.False(t, ok)
}

func TestAuditDefaultsAllCategories(t *testing.T) {
	runner := new(lighthouse.MockRunner)
	runner.On("Run", mock.Anything, "lighthouse", mock.MatchedBy(func(args []string) bool {
		return len(args) == 6 && args[5] == "--only-categories=performance,seo,accessibility"
	})).Return(fixture(t), nil, nil)

	_, err := lighthouse.New(lighthouse.Config{}, runner, nil).Audit(context.Background(), "https://example.com/", endpoint)
	require.NoError(t, err)
	runner.AssertExpectations(t)
}

func TestAuditFailures(t *testing.T) {
	tests := []struct {
		name     string
		stdout   []byte
		stderr   []byte
		runErr   error
		endpoint audit.Endpoint
	}{
		{name: "missing port", endpoint: audit.Endpoint{}},
		{name: "non zero exit", runErr: errors.New("exit status 1"), stderr: []byte("Runtime error encountered"), endpoint: endpoint},
		{name: "unparsable output", stdout: []byte("not json"), endpoint: endpoint},
		{name: "runtime error", stdout: []byte(`{"runtimeError":{"code":"NO_FCP","message":"no paint"},"audits":{}}`), endpoint: endpoint},
		{name: "no audits", stdout: []byte(`{"lighthouseVersion":"12"}`), endpoint: endpoint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(lighthouse.MockRunner)
			runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(tt.stdout, tt.stderr, tt.runErr).Maybe()

			_, err := lighthouse.New(lighthouse.Config{}, runner, nil).Audit(context.Background(), "https://example.com/", tt.endpoint)
			require.Error(t, err)
			assert.ErrorIs(t, err, audit.ErrAuditEngine)
		})
	}
}

func TestAuditTimeout(t *testing.T) {
	runner := new(lighthouse.MockRunner)
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, nil, context.DeadlineExceeded)

	c := lighthouse.New(lighthouse.Config{Timeout: 10 * time.Millisecond}, runner, nil)
	_, err := c.Audit(context.Background(), "https://example.com/", endpoint)
	require.Error(t, err)
	assert.ErrorIs(t, err, audit.ErrAuditEngine)
	assert.Contains(t, err.Error(), "did not finish")
}

func TestAuditCallerCancellation(t *testing.T) {
	runner := new(lighthouse.MockRunner)
	runner.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lighthouse.New(lighthouse.Config{}, runner, nil).Audit(ctx, "https://example.com/", endpoint)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, audit.ErrAuditEngine)
}

func TestParseAcceptsNoErrorRuntimeCode(t *testing.T) {
	raw, err := lighthouse.Parse([]byte(`{"runtimeError":{"code":"NO_ERROR"},"audits":{"speed-index":{"score":0.9,"numericValue":1200}}}`))
	require.NoError(t, err)
	assert.Len(t, raw, 1)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, _, err := lighthouse.ExecRunner{}.Run(context.Background(), "definitely-not-a-lighthouse-binary")
	require.Error(t, err)
}

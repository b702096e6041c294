package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

func TestStateTerminal(t *testing.T) {
	tests := []struct {
		state State
		want  bool
	}{
		{StatePending, false},
		{StateSessionOpening, false},
		{StateNavigating, false},
		{StateCollecting, false},
		{StateAggregating, false},
		{StateDone, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.Terminal())
		})
	}
}

func TestRunEndsEachURLInOneTerminalState(t *testing.T) {
	urls := []string{"https://a.example/", "https://slow.example/"}
	p, h := newPipeline(t, urls, fakeCollector{raw: rawWithLCP()}, Config{SampleSize: 2})
	h.opener.navErrs["https://slow.example/"] = audit.NewError(
		audit.KindNavigationTimeout, "https://slow.example/", "navigation exceeded 1s", context.DeadlineExceeded)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	for _, url := range urls {
		var states []string
		for _, entry := range h.logs.FilterMessage("State transition").FilterField(zap.String("url", url)).All() {
			states = append(states, entry.ContextMap()["state"].(string))
		}
		require.NotEmpty(t, states, url)
		assert.Equal(t, string(StatePending), states[0], url)

		terminal := 0
		for _, s := range states {
			if State(s).Terminal() {
				terminal++
			}
		}
		assert.Equal(t, 1, terminal, url)
		assert.True(t, State(states[len(states)-1]).Terminal(), url)
	}
	assert.Equal(t, string(StateFailed), lastState(h, "https://slow.example/"))
	assert.Equal(t, string(StateDone), lastState(h, "https://a.example/"))
}

func lastState(h *harness, url string) string {
	entries := h.logs.FilterMessage("State transition").FilterField(zap.String("url", url)).All()
	if len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].ContextMap()["state"].(string)
}

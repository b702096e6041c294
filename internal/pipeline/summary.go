package pipeline

import (
	"sync"
	"time"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// Failure describes one URL that produced no report.
type Failure struct {
	URL     string     `json:"url"`
	Kind    audit.Kind `json:"kind,omitempty"`
	Message string     `json:"message"`
}

// Summary is the outcome of one run. It is also the payload of the run
// notification.
type Summary struct {
	RunID        string    `json:"run_id"`
	FeedLocation string    `json:"feed_location"`
	Candidates   int       `json:"candidates"`
	Sampled      int       `json:"sampled"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	Failures     []Failure `json:"failures,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Run phases reported by Progress.
const (
	PhaseIdle       = "idle"
	PhaseListing    = "listing"
	PhaseAuditing   = "auditing"
	PhasePersisting = "persisting"
	PhaseFinished   = "finished"
)

// Progress is a point-in-time view of a run.
type Progress struct {
	RunID     string `json:"run_id,omitempty"`
	Phase     string `json:"phase"`
	Sampled   int    `json:"sampled"`
	Completed int    `json:"completed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

type tracker struct {
	mu sync.Mutex
	p  Progress
}

func (t *tracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.p
}

func (t *tracker) update(fn func(*Progress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.p)
}

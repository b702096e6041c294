package audit

import (
	"context"
	"io"
	"time"
)

// URLSource yields the candidate URLs of one feed.
type URLSource interface {
	ListURLs(ctx context.Context, feedLocation string) ([]string, error)
}

// Sampler picks at most n distinct candidates.
type Sampler interface {
	Select(candidates []string, n int) ([]string, error)
}

// Extractor computes DOM signals from a live page. ctx is bound to the page's tab.
type Extractor interface {
	Extract(ctx context.Context) (DOMSignals, error)
}

// Session is one browser process with one tab, owned by a single URL audit.
type Session interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	ConsoleErrors() []string
	Screenshot(ctx context.Context) ([]byte, error)
	EvaluateDOM(ctx context.Context, extractor Extractor) (DOMSignals, error)
	Endpoint() Endpoint
	Close() error
}

// SessionOpener launches fresh browser sessions.
type SessionOpener interface {
	Open(ctx context.Context) (Session, error)
}

// MetricCollector runs the audit engine against an already-open browser.
type MetricCollector interface {
	Audit(ctx context.Context, url string, endpoint Endpoint) (RawAuditResult, error)
}

// Sink persists the reports of one run.
type Sink interface {
	Persist(ctx context.Context, runID string, reports []Report) error
}

// BlobStore writes opaque objects and returns their URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, body io.Reader) (string, error)
}

// Publisher emits run notifications.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Limiter delays work against a host until it is allowed to proceed.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Hasher computes hex digests of content.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

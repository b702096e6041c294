// Package pipeline orchestrates one audit run: list the feed, sample it,
// audit every sampled URL in its own browser session, and persist the
// resulting reports.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
	"github.com/JakeFAU/realtime-site-auditor/internal/hash/sha256"
	"github.com/JakeFAU/realtime-site-auditor/internal/metrics"
	"github.com/JakeFAU/realtime-site-auditor/internal/report"
)

// Defaults applied by New.
const (
	DefaultNavigationTimeout = 60 * time.Second
	DefaultSinkTimeout       = 30 * time.Second
)

// Deps holds the collaborators of a Pipeline. Source, Sampler, Sessions,
// Collector, Clock and IDs are required; the rest are optional. Hasher
// defaults to SHA-256.
type Deps struct {
	Source    audit.URLSource
	Sampler   audit.Sampler
	Sessions  audit.SessionOpener
	Collector audit.MetricCollector
	Sink      audit.Sink
	Blobs     audit.BlobStore
	Publisher audit.Publisher
	Limiter   audit.Limiter
	Extractor audit.Extractor
	Clock     audit.Clock
	IDs       audit.IDGenerator
	Hasher    audit.Hasher
}

// Config controls Pipeline behavior.
type Config struct {
	FeedLocation      string
	SampleSize        int
	NavigationTimeout time.Duration
	Concurrency       int
	Screenshots       bool
	BlobPrefix        string
	SinkTimeout       time.Duration
	Topic             string
}

// Pipeline runs audit runs.
type Pipeline struct {
	deps     Deps
	cfg      Config
	logger   *zap.Logger
	progress tracker
}

// New constructs a Pipeline.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Pipeline, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: url source is required")
	case deps.Sampler == nil:
		return nil, errors.New("pipeline: sampler is required")
	case deps.Sessions == nil:
		return nil, errors.New("pipeline: session opener is required")
	case deps.Collector == nil:
		return nil, errors.New("pipeline: metric collector is required")
	case deps.Clock == nil:
		return nil, errors.New("pipeline: clock is required")
	case deps.IDs == nil:
		return nil, errors.New("pipeline: id generator is required")
	}
	if cfg.SampleSize < 0 {
		return nil, fmt.Errorf("pipeline: sample size must be >= 0, got %d", cfg.SampleSize)
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = DefaultSinkTimeout
	}
	if deps.Hasher == nil {
		deps.Hasher = sha256.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	p := &Pipeline{deps: deps, cfg: cfg, logger: logger}
	p.progress.p.Phase = PhaseIdle
	return p, nil
}

// Progress returns a snapshot of the current or last run.
func (p *Pipeline) Progress() Progress {
	return p.progress.snapshot()
}

// Run executes one audit run. Per-URL failures are counted in the summary
// and never abort the run; a feed that cannot be read does. When ctx is
// canceled, URLs not yet started are counted as failed, reports already
// produced are still persisted, and the cancellation is returned.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	runID, err := p.deps.IDs.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	summary := Summary{
		RunID:        runID,
		FeedLocation: p.cfg.FeedLocation,
		StartedAt:    p.deps.Clock.Now(),
	}
	logger := p.logger.With(zap.String("run_id", runID))
	p.progress.update(func(pr *Progress) { *pr = Progress{RunID: runID, Phase: PhaseListing} })

	candidates, err := p.deps.Source.ListURLs(ctx, p.cfg.FeedLocation)
	if err != nil {
		p.progress.update(func(pr *Progress) { pr.Phase = PhaseFinished })
		if !errors.Is(err, audit.ErrFeedUnavailable) {
			err = audit.NewError(audit.KindFeedUnavailable, p.cfg.FeedLocation, "list urls", err)
		}
		logger.Error("Feed unavailable", zap.String("feed", p.cfg.FeedLocation), zap.Error(err))
		return summary, err
	}
	summary.Candidates = len(candidates)

	sample, err := p.deps.Sampler.Select(candidates, p.cfg.SampleSize)
	if err != nil {
		p.progress.update(func(pr *Progress) { pr.Phase = PhaseFinished })
		return summary, fmt.Errorf("sample urls: %w", err)
	}
	summary.Sampled = len(sample)
	metrics.SetSampleSize(len(sample))
	p.progress.update(func(pr *Progress) {
		pr.Phase = PhaseAuditing
		pr.Sampled = len(sample)
	})
	logger.Info("Sampled URLs",
		zap.Int("candidates", len(candidates)),
		zap.Int("sampled", len(sample)),
		zap.Int("concurrency", p.cfg.Concurrency),
	)

	outcomes := p.auditAll(ctx, runID, sample, logger)

	reports := make([]audit.Report, 0, len(sample))
	for i, o := range outcomes {
		if o.err != nil {
			summary.Failures = append(summary.Failures, Failure{
				URL:     sample[i],
				Kind:    audit.KindOf(o.err),
				Message: o.err.Error(),
			})
			continue
		}
		reports = append(reports, o.report)
	}
	summary.Succeeded = len(reports)
	summary.Failed = len(summary.Failures)

	p.progress.update(func(pr *Progress) { pr.Phase = PhasePersisting })
	finishCtx, cancel := p.detached(ctx)
	defer cancel()
	p.persist(finishCtx, runID, reports, logger)

	summary.FinishedAt = p.deps.Clock.Now()
	p.notify(finishCtx, summary, logger)
	p.progress.update(func(pr *Progress) { pr.Phase = PhaseFinished })

	logger.Info("Total successful",
		zap.Int("sampled", summary.Sampled),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("run interrupted: %w", err)
	}
	return summary, nil
}

type outcome struct {
	report audit.Report
	err    error
}

// auditAll audits urls with at most cfg.Concurrency sessions alive at once.
// Outcomes are indexed like urls.
func (p *Pipeline) auditAll(ctx context.Context, runID string, urls []string, logger *zap.Logger) []outcome {
	outcomes := make([]outcome, len(urls))
	slots := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, url := range urls {
		if err := p.acquire(ctx, slots); err != nil {
			outcomes[i] = outcome{err: err}
			p.finishURL(logger, url, err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-slots }()
			rep, err := p.auditURL(ctx, runID, url, logger)
			outcomes[i] = outcome{report: rep, err: err}
			p.finishURL(logger, url, err)
		}()
	}
	wg.Wait()
	return outcomes
}

// acquire takes a worker slot unless ctx is done first.
func (p *Pipeline) acquire(ctx context.Context, slots chan struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case slots <- struct{}{}:
		return nil
	}
}

func (p *Pipeline) finishURL(logger *zap.Logger, url string, err error) {
	if err != nil {
		logger.Warn("Failed", zap.String("url", url), zap.Error(err))
		metrics.ObserveURL(metrics.StatusFailed)
		metrics.ObserveFailure(string(audit.KindOf(err)))
	} else {
		metrics.ObserveURL(metrics.StatusSucceeded)
	}
	p.progress.update(func(pr *Progress) {
		pr.Completed++
		if err != nil {
			pr.Failed++
		} else {
			pr.Succeeded++
		}
	})
}

// auditURL drives one URL through its states. The session is closed on
// every path.
func (p *Pipeline) auditURL(ctx context.Context, runID, url string, logger *zap.Logger) (rep audit.Report, err error) {
	logger = logger.With(zap.String("url", url))
	state := StatePending
	transition := func(next State) {
		if state.Terminal() {
			return
		}
		state = next
		logger.Debug("State transition", zap.String("state", string(next)))
	}
	logger.Debug("State transition", zap.String("state", string(state)))
	defer func() {
		if err != nil {
			transition(StateFailed)
			return
		}
		transition(StateDone)
	}()

	if p.deps.Limiter != nil {
		if err := p.deps.Limiter.Wait(ctx, url); err != nil {
			return audit.Report{}, err
		}
	}

	transition(StateSessionOpening)
	start := time.Now()
	session, err := p.deps.Sessions.Open(ctx)
	if err != nil {
		if audit.KindOf(err) == "" {
			err = audit.NewError(audit.KindSessionLaunch, url, "open session", err)
		}
		return audit.Report{}, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("Failed to close session", zap.Error(cerr))
		}
	}()
	metrics.ObserveStage("session_open", time.Since(start))

	transition(StateNavigating)
	start = time.Now()
	if err := session.Navigate(ctx, url, p.cfg.NavigationTimeout); err != nil {
		return audit.Report{}, err
	}
	metrics.ObserveStage("navigate", time.Since(start))

	transition(StateCollecting)
	start = time.Now()
	dom, err := session.EvaluateDOM(ctx, p.deps.Extractor)
	if err != nil {
		return audit.Report{}, err
	}
	consoleErrors := session.ConsoleErrors()
	screenshotURI := p.captureScreenshot(ctx, session, runID, url, logger)
	metrics.ObserveStage("collect", time.Since(start))

	start = time.Now()
	raw, err := p.deps.Collector.Audit(ctx, url, session.Endpoint())
	if err != nil {
		return audit.Report{}, err
	}
	metrics.ObserveStage("lighthouse", time.Since(start))

	transition(StateAggregating)
	rep = report.Build(url, dom, raw, consoleErrors,
		report.WithRunID(runID),
		report.WithAuditedAt(p.deps.Clock.Now()),
		report.WithScreenshotURI(screenshotURI),
	)
	return rep, nil
}

// captureScreenshot stores a full-page screenshot and returns its URI.
// Failures are logged and yield "".
func (p *Pipeline) captureScreenshot(
	ctx context.Context,
	session audit.Session,
	runID, url string,
	logger *zap.Logger,
) string {
	if !p.cfg.Screenshots || p.deps.Blobs == nil {
		return ""
	}
	png, err := session.Screenshot(ctx)
	if err != nil {
		logger.Warn("Screenshot failed", zap.Error(err))
		return ""
	}
	key, err := p.screenshotPath(runID, url)
	if err != nil {
		logger.Warn("Screenshot naming failed", zap.Error(err))
		return ""
	}
	uri, err := p.deps.Blobs.PutObject(ctx, key, "image/png", bytes.NewReader(png))
	if err != nil {
		logger.Warn("Screenshot upload failed", zap.Error(err))
		return ""
	}
	return uri
}

func (p *Pipeline) screenshotPath(runID, url string) (string, error) {
	name, err := audit.SafeBasename(url, p.deps.Hasher)
	if err != nil {
		return "", err
	}
	return path.Join(strings.Trim(p.cfg.BlobPrefix, "/"), runID, "screenshots", name+".png"), nil
}

// detached returns the context used after the audits: ctx itself while it is
// live, otherwise a copy that ignores its cancellation. Either way it is
// bounded by the sink timeout.
func (p *Pipeline) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	base := ctx
	if ctx.Err() != nil {
		base = context.WithoutCancel(ctx)
	}
	return context.WithTimeout(base, p.cfg.SinkTimeout)
}

func (p *Pipeline) persist(ctx context.Context, runID string, reports []audit.Report, logger *zap.Logger) {
	if p.deps.Sink == nil {
		logger.Warn("No sink configured; reports not persisted", zap.Int("reports", len(reports)))
		return
	}
	start := time.Now()
	if err := p.deps.Sink.Persist(ctx, runID, reports); err != nil {
		logger.Error("Failed to persist reports", zap.Int("reports", len(reports)), zap.Error(err))
		return
	}
	metrics.ObserveStage("persist", time.Since(start))
}

func (p *Pipeline) notify(ctx context.Context, summary Summary, logger *zap.Logger) {
	if p.cfg.Topic == "" || p.deps.Publisher == nil {
		return
	}
	id, err := p.deps.Publisher.Publish(ctx, p.cfg.Topic, summary)
	if err != nil {
		logger.Warn("Failed to publish run summary", zap.String("topic", p.cfg.Topic), zap.Error(err))
		return
	}
	logger.Debug("Published run summary", zap.String("topic", p.cfg.Topic), zap.String("message_id", id))
}

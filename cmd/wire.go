package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
	"github.com/JakeFAU/realtime-site-auditor/internal/browser"
	"github.com/JakeFAU/realtime-site-auditor/internal/clock/system"
	"github.com/JakeFAU/realtime-site-auditor/internal/config"
	"github.com/JakeFAU/realtime-site-auditor/internal/hash/sha256"
	"github.com/JakeFAU/realtime-site-auditor/internal/id/uuid"
	"github.com/JakeFAU/realtime-site-auditor/internal/lighthouse"
	"github.com/JakeFAU/realtime-site-auditor/internal/pipeline"
	"github.com/JakeFAU/realtime-site-auditor/internal/policy/ratelimit"
	gcppublisher "github.com/JakeFAU/realtime-site-auditor/internal/publisher/pubsub"
	"github.com/JakeFAU/realtime-site-auditor/internal/sampler"
	"github.com/JakeFAU/realtime-site-auditor/internal/sink"
	"github.com/JakeFAU/realtime-site-auditor/internal/sitemap"
	gcsstorage "github.com/JakeFAU/realtime-site-auditor/internal/storage/gcs"
	localstorage "github.com/JakeFAU/realtime-site-auditor/internal/storage/local"
	memorystorage "github.com/JakeFAU/realtime-site-auditor/internal/storage/memory"
	pgstore "github.com/JakeFAU/realtime-site-auditor/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/realtime-site-auditor/internal/storage/sqlite"
)

// app owns the pipeline and every resource that must be released after the run.
type app struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
	closers  []func()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// build creates the pipeline's dependencies from cfg. On error everything
// acquired so far is released.
func build(ctx context.Context, cfg config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.logger.Info("building application dependencies",
		zap.String("feed", cfg.Feed.Location),
		zap.Int("sample_size", cfg.SampleSize),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	blobs, err := setupStorage(ctx, a, cfg)
	if err != nil {
		return nil, err
	}

	sinks, err := setupSinks(ctx, a, cfg, blobs)
	if err != nil {
		return nil, err
	}

	publisher, err := setupPublisher(ctx, a, cfg)
	if err != nil {
		return nil, err
	}

	categories, err := cfg.Categories()
	if err != nil {
		return nil, fmt.Errorf("lighthouse categories: %w", err)
	}
	extractor, err := browser.NewExtractor(cfg.Browser.Extractor)
	if err != nil {
		return nil, fmt.Errorf("dom extractor: %w", err)
	}

	deps := pipeline.Deps{
		Source: sitemap.New(sitemap.Config{
			UserAgent:          cfg.Feed.UserAgent,
			Timeout:            cfg.Feed.Timeout,
			InsecureSkipVerify: cfg.Feed.InsecureSkipVerify,
		}, logger.Named("sitemap")),
		Sampler: sampler.New(cfg.SeedPtr()),
		Sessions: browser.NewLauncher(browser.Config{
			ExecPath:                cfg.Browser.ExecPath,
			UserAgent:               cfg.Browser.UserAgent,
			Headless:                cfg.Browser.Headless,
			IgnoreCertificateErrors: cfg.Browser.IgnoreCertificateErrors,
			WindowWidth:             cfg.Browser.WindowWidth,
			WindowHeight:            cfg.Browser.WindowHeight,
		}, logger.Named("browser")),
		Collector: lighthouse.New(lighthouse.Config{
			Binary:     cfg.Lighthouse.Binary,
			Categories: categories,
			Timeout:    cfg.Lighthouse.Timeout,
			ExtraArgs:  cfg.Lighthouse.ExtraArgs,
		}, lighthouse.ExecRunner{}, logger.Named("lighthouse")),
		Sink:      sinks,
		Blobs:     blobs,
		Publisher: publisher,
		Extractor: extractor,
		Clock:     system.New(),
		IDs:       uuid.New(),
		Hasher:    sha256.New(),
	}
	if cfg.Pipeline.HostQPS > 0 {
		deps.Limiter = ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.Pipeline.HostQPS,
			DefaultBurst: cfg.Pipeline.HostBurst,
		})
		a.logger.Info("per-host politeness enabled", zap.Float64("host_qps", cfg.Pipeline.HostQPS))
	}

	a.pipeline, err = pipeline.New(deps, pipeline.Config{
		FeedLocation:      cfg.Feed.Location,
		SampleSize:        cfg.SampleSize,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		Concurrency:       cfg.Pipeline.Concurrency,
		Screenshots:       cfg.Browser.Screenshots,
		BlobPrefix:        cfg.Storage.Prefix,
		SinkTimeout:       cfg.Sink.Timeout,
		Topic:             cfg.PubSub.Topic,
	}, logger.Named("pipeline"))
	if err != nil {
		return nil, fmt.Errorf("pipeline init failed: %w", err)
	}
	return a, nil
}

func setupStorage(ctx context.Context, a *app, cfg config.Config) (audit.BlobStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendGCS:
		a.logger.Info("using GCS storage backend", zap.String("bucket", cfg.Storage.GCSBucket))
		store, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: cfg.Storage.GCSBucket}, a.logger.Named("gcs"))
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		a.onClose(func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("gcs client close failed", zap.Error(err))
			}
		})
		return store, nil
	case config.BackendLocal:
		a.logger.Info("using local storage backend", zap.String("path", cfg.Storage.LocalDir))
		store, err := localstorage.New(localstorage.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return store, nil
	default:
		a.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func setupSinks(ctx context.Context, a *app, cfg config.Config, blobs audit.BlobStore) (audit.Sink, error) {
	var sinks sink.Multi
	if cfg.Sink.JSON {
		sinks = append(sinks, sink.NewJSONSink(blobs, cfg.Storage.Prefix, cfg.Sink.ObjectName, a.logger.Named("json_sink")))
	}
	if cfg.DB.DSN != "" {
		store, err := pgstore.NewReportStore(ctx, pgstore.Config{
			DSN:         cfg.DB.DSN,
			Table:       cfg.DB.Table,
			MaxConns:    cfg.DB.MaxConns,
			AutoMigrate: cfg.DB.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("report store init failed: %w", err)
		}
		a.onClose(store.Close)
		sinks = append(sinks, store)
		a.logger.Info("postgres report store initialized", zap.String("table", cfg.DB.Table))
	}
	if cfg.SQLite.Path != "" {
		store, err := sqlitestore.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite report store init failed: %w", err)
		}
		a.onClose(func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("sqlite close failed", zap.Error(err))
			}
		})
		sinks = append(sinks, store)
		a.logger.Info("sqlite report store initialized", zap.String("path", cfg.SQLite.Path))
	}
	if len(sinks) == 0 {
		a.logger.Warn("No sinks configured; reports will only be logged")
		return nil, nil
	}
	return sinks, nil
}

func setupPublisher(ctx context.Context, a *app, cfg config.Config) (audit.Publisher, error) {
	if cfg.PubSub.Topic == "" {
		a.logger.Debug("No Pub/Sub topic configured, run summaries will not be published")
		return nil, nil
	}
	publisher, err := gcppublisher.Open(ctx, cfg.PubSub.ProjectID, map[string]string{"source": "siteauditor"})
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.onClose(func() { publisher.Close(a.logger) })
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", cfg.PubSub.ProjectID),
		zap.String("topic", cfg.PubSub.Topic),
	)
	return publisher, nil
}

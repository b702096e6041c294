package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/config"
	"github.com/JakeFAU/realtime-site-auditor/internal/logging"
	"github.com/JakeFAU/realtime-site-auditor/internal/metrics"
	"github.com/JakeFAU/realtime-site-auditor/internal/server"
)

// newAuditCmd creates the 'audit' subcommand, which performs one run.
func newAuditCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audits a random sample of the feed's pages",
		Long: `Lists every URL in the configured sitemap, samples sample_size of them
and audits each in its own browser session. Per-URL failures are logged and
skipped; only an unreadable feed or invalid configuration fails the command.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd, *cfgFile)
		},
	}
	cmd.Flags().Int("sample-size", 0, "number of URLs to audit (overrides sample_size)")
	cmd.Flags().String("feed", "", "sitemap URL (overrides feed.location)")
	cmd.Flags().Int64("seed", -1, "sampler seed for reproducible runs (overrides seed)")
	return cmd
}

func runAudit(cmd *cobra.Command, cfgFile string) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil && !errors.Is(syncErr, syscall.EINVAL) {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Metrics.ListenAddr != "" {
		srv := server.New(app.pipeline, logger.Named("server"))
		if _, err := srv.Start(cfg.Metrics.ListenAddr); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", zap.Error(err))
			}
		}()
	}

	summary, runErr := app.pipeline.Run(ctx)

	if cfg.Metrics.PushgatewayURL != "" && summary.RunID != "" {
		if err := metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, summary.RunID); err != nil {
			logger.Warn("Failed to push metrics", zap.Error(err))
		}
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		logger.Warn("Run interrupted", zap.String("run_id", summary.RunID))
	default:
		return fmt.Errorf("run audit: %w", runErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: sampled %d, reports %d, failures %d\n",
		summary.RunID, summary.Sampled, summary.Succeeded, summary.Failed)
	return nil
}

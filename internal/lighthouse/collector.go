// Package lighthouse collects performance, SEO and accessibility audits by
// attaching the Lighthouse CLI to an already running browser.
package lighthouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// Defaults applied by New.
const (
	DefaultBinary  = "lighthouse"
	DefaultTimeout = 120 * time.Second
	stderrTailSize = 512
)

// Config controls the engine invocation.
type Config struct {
	Binary     string
	Categories []audit.Category
	Timeout    time.Duration
	ExtraArgs  []string
}

// Collector implements audit.MetricCollector.
type Collector struct {
	cfg    Config
	runner Runner
	logger *zap.Logger
}

// New creates a Collector. A nil runner executes the real binary.
func New(cfg Config, runner Runner, logger *zap.Logger) *Collector {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = append([]audit.Category(nil), audit.DefaultCategories...)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{cfg: cfg, runner: runner, logger: logger}
}

// Audit runs the engine against url through the browser at endpoint. It
// never launches a browser of its own.
func (c *Collector) Audit(ctx context.Context, url string, endpoint audit.Endpoint) (audit.RawAuditResult, error) {
	if endpoint.Port <= 0 {
		return nil, audit.NewError(audit.KindAuditEngine, url, "browser endpoint has no debugging port", nil)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := c.runner.Run(runCtx, c.cfg.Binary, c.args(url, endpoint.Port)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("audit %s: %w", url, ctx.Err())
		}
		msg := "engine run failed"
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("engine did not finish within %s", c.cfg.Timeout)
		}
		if tail := stderrTail(stderr); tail != "" {
			msg = fmt.Sprintf("%s: %s", msg, tail)
		}
		return nil, audit.NewError(audit.KindAuditEngine, url, msg, err)
	}

	raw, err := Parse(stdout)
	if err != nil {
		return nil, audit.NewError(audit.KindAuditEngine, url, "invalid engine output", err)
	}
	c.logger.Debug("Audit engine finished",
		zap.String("url", url),
		zap.Int("audits", len(raw)),
		zap.Duration("duration", time.Since(start)),
	)
	return raw, nil
}

func (c *Collector) args(url string, port int) []string {
	args := []string{
		url,
		"--port=" + strconv.Itoa(port),
		"--output=json",
		"--output-path=stdout",
		"--quiet",
		"--only-categories=" + audit.JoinCategories(c.cfg.Categories),
	}
	return append(args, c.cfg.ExtraArgs...)
}

type report struct {
	RuntimeError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"runtimeError"`
	Audits map[string]audit.AuditRecord `json:"audits"`
}

// Parse decodes a Lighthouse JSON result into its audits. Audits the
// engine skipped are simply absent.
func Parse(data []byte) (audit.RawAuditResult, error) {
	var r report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if r.RuntimeError != nil && r.RuntimeError.Code != "" && r.RuntimeError.Code != "NO_ERROR" {
		return nil, fmt.Errorf("engine runtime error %s: %s", r.RuntimeError.Code, r.RuntimeError.Message)
	}
	if r.Audits == nil {
		return nil, errors.New("result has no audits")
	}
	return audit.RawAuditResult(r.Audits), nil
}

func stderrTail(stderr []byte) string {
	s := strings.TrimSpace(string(stderr))
	if len(s) > stderrTailSize {
		s = s[len(s)-stderrTailSize:]
	}
	return s
}

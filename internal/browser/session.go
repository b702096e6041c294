package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// errSessionClosed is returned by operations on a closed session.
var errSessionClosed = errors.New("browser session closed")

// Session owns one browser process and its single tab.
type Session struct {
	logger      *zap.Logger
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	endpoint    audit.Endpoint
	console     *consoleRecorder
	idle        *idleWatcher

	mu        sync.Mutex
	url       string
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Endpoint returns the debugging endpoint other tools can attach to.
func (s *Session) Endpoint() audit.Endpoint {
	return s.endpoint
}

// Navigate loads rawURL and blocks until the main frame is network-idle or
// timeout elapses.
func (s *Session) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = DefaultNavigationTimeout
	}
	s.mu.Lock()
	s.url = rawURL
	s.mu.Unlock()

	navCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	s.idle.arm()
	err := chromedp.Run(navCtx,
		chromedp.Navigate(rawURL),
		chromedp.ActionFunc(s.idle.wait),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("navigate %s: %w", rawURL, ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return audit.NewError(audit.KindNavigationTimeout, rawURL,
			fmt.Sprintf("page not idle after %s", timeout), err)
	default:
		return audit.NewError(audit.KindNavigation, rawURL, "navigation failed", err)
	}
}

// ConsoleErrors returns the console errors recorded since Open. The first
// call drains the recorder; later calls return nil.
func (s *Session) ConsoleErrors() []string {
	return s.console.drain()
}

// Screenshot captures a full-page PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, audit.NewError(audit.KindScreenshot, s.currentURL(), "capture screenshot", err)
	}
	return buf, nil
}

// EvaluateDOM runs extractor against the loaded page. A nil extractor uses
// ScriptExtractor.
func (s *Session) EvaluateDOM(ctx context.Context, extractor audit.Extractor) (audit.DOMSignals, error) {
	if err := s.checkOpen(); err != nil {
		return audit.DOMSignals{}, err
	}
	if extractor == nil {
		extractor = ScriptExtractor{}
	}
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()

	signals, err := extractor.Extract(runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return audit.DOMSignals{}, fmt.Errorf("evaluate dom: %w", ctx.Err())
		}
		return audit.DOMSignals{}, audit.NewError(audit.KindEvaluation, s.currentURL(), "extract dom signals", err)
	}
	return signals, nil
}

// Close terminates the browser process. It is safe to call more than once
// and does not depend on any caller context.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.closeErr = s.teardown()
	})
	return s.closeErr
}

func (s *Session) teardown() error {
	var err error
	if s.tabCtx != nil {
		if cerr := chromedp.Cancel(s.tabCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("close browser: %w", cerr)
		}
	}
	if s.tabCancel != nil {
		s.tabCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return err
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	return nil
}

func (s *Session) currentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

package browser

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// DefaultNavigationTimeout bounds Navigate when no timeout is supplied.
const DefaultNavigationTimeout = 60 * time.Second

// Config controls how browser processes are launched.
type Config struct {
	ExecPath                string
	UserAgent               string
	Headless                bool
	IgnoreCertificateErrors bool
	WindowWidth             int
	WindowHeight            int
	DiscoveryTimeout        time.Duration
}

// Launcher starts one fresh browser process per session.
type Launcher struct {
	cfg    Config
	logger *zap.Logger
	client *http.Client
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg Config, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = 5 * time.Second
	}
	return &Launcher{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: cfg.DiscoveryTimeout},
	}
}

// Open satisfies audit.SessionOpener.
func (l *Launcher) Open(ctx context.Context) (audit.Session, error) {
	s, err := l.Launch(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Launch starts a browser on a free debugging port and opens one tab with
// console recording already active. On failure every partially created
// resource is released before returning.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	port, err := freePort()
	if err != nil {
		return nil, audit.NewError(audit.KindSessionLaunch, "", "pick debugging port", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], allocatorOptions(l.cfg, port)...)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		logger:      l.logger,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		console:     newConsoleRecorder(),
		idle:        newIdleWatcher(),
	}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		s.console.handle(ev)
		s.idle.handle(ev)
	})

	stop := forwardCancel(ctx, tabCancel)
	err = chromedp.Run(tabCtx,
		runtime.Enable(),
		cdplog.Enable(),
		page.SetLifecycleEventsEnabled(true),
	)
	stop()
	if err != nil {
		s.teardown()
		return nil, audit.NewError(audit.KindSessionLaunch, "", "start browser", err)
	}

	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		s.idle.setFrame(cdp.FrameID(c.Target.TargetID))
	}

	endpoint, err := discoverEndpoint(ctx, l.client, "127.0.0.1", port)
	if err != nil {
		s.teardown()
		return nil, audit.NewError(audit.KindSessionLaunch, "", "discover debugging endpoint", err)
	}
	s.endpoint = endpoint
	l.logger.Debug("Browser session opened",
		zap.Int("port", endpoint.Port),
		zap.String("browser", endpoint.Browser),
	)
	return s, nil
}

// chromeFlags lists the command-line switches added on top of chromedp's
// defaults for a session listening on port.
func chromeFlags(cfg Config, port int) map[string]any {
	flags := map[string]any{
		"headless":                      cfg.Headless,
		"disable-gpu":                   true,
		"no-sandbox":                    true,
		"disable-dev-shm-usage":         true,
		"hide-scrollbars":               true,
		"enable-automation":             false,
		"disable-background-networking": true,
		"remote-debugging-port":         strconv.Itoa(port),
		"remote-allow-origins":          "*",
	}
	if cfg.Headless {
		flags["headless"] = "new"
	}
	if cfg.IgnoreCertificateErrors {
		flags["ignore-certificate-errors"] = true
	}
	return flags
}

func allocatorOptions(cfg Config, port int) []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	for name, value := range chromeFlags(cfg, port) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	return opts
}

// forwardCancel cancels a chromedp-derived context when parent ends. The
// returned func stops forwarding.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Package sitemap reads candidate page URLs from an XML sitemap feed.
package sitemap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 50 << 20
)

// Config controls how feeds are fetched.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps a single feed document.
	MaxBodyBytes int
	// InsecureSkipVerify disables TLS verification for feed requests only.
	InsecureSkipVerify bool
}

// Source implements audit.URLSource on top of a colly collector. It reads
// <urlset><url><loc> entries and follows one level of <sitemapindex>.
type Source struct {
	cfg    Config
	logger *zap.Logger
	base   *colly.Collector
}

// New builds a Source.
func New(cfg Config, logger *zap.Logger) *Source {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport(cfg.InsecureSkipVerify))
	return &Source{cfg: cfg, logger: logger, base: c}
}

// ListURLs returns the page URLs listed by feedLocation in document order.
// Invalid entries are dropped with a warning. A feed that cannot be read or
// lists no URLs yields a FEED_UNAVAILABLE error.
func (s *Source) ListURLs(ctx context.Context, feedLocation string) ([]string, error) {
	if err := audit.ValidateURL(feedLocation); err != nil {
		return nil, audit.NewError(audit.KindFeedUnavailable, feedLocation, "invalid feed location", err)
	}

	doc, err := s.fetch(ctx, feedLocation)
	if err != nil {
		return nil, audit.NewError(audit.KindFeedUnavailable, feedLocation, "read feed", err)
	}
	locs := doc.pages
	for _, child := range unique(doc.children) {
		childDoc, err := s.fetch(ctx, child)
		if err != nil {
			if ctx.Err() != nil {
				return nil, audit.NewError(audit.KindFeedUnavailable, feedLocation, "read child feed", ctx.Err())
			}
			s.logger.Warn("Skipping unreadable child sitemap",
				zap.String("feed", feedLocation),
				zap.String("child", child),
				zap.Error(err),
			)
			continue
		}
		if len(childDoc.children) > 0 {
			s.logger.Warn("Ignoring nested sitemap index",
				zap.String("child", child),
				zap.Int("nested", len(childDoc.children)),
			)
		}
		locs = append(locs, childDoc.pages...)
	}

	urls := make([]string, 0, len(locs))
	for _, loc := range locs {
		if err := audit.ValidateURL(loc); err != nil {
			s.logger.Warn("Dropping invalid sitemap entry", zap.String("loc", loc), zap.Error(err))
			continue
		}
		urls = append(urls, loc)
	}
	if len(urls) == 0 {
		return nil, audit.NewError(audit.KindFeedUnavailable, feedLocation, "feed lists no urls", nil)
	}
	s.logger.Info("Sitemap loaded",
		zap.String("feed", feedLocation),
		zap.Int("urls", len(urls)),
		zap.Int("child_feeds", len(doc.children)),
	)
	return urls, nil
}

type document struct {
	pages    []string
	children []string
}

func (s *Source) fetch(ctx context.Context, feed string) (document, error) {
	var (
		doc      document
		fetchErr error
	)
	collector := s.base.Clone()
	collector.AllowURLRevisit = true
	collector.MaxBodySize = s.cfg.MaxBodyBytes
	collector.SetRequestTimeout(s.cfg.Timeout)
	if s.cfg.UserAgent != "" {
		collector.UserAgent = s.cfg.UserAgent
	}
	// Feeds are parsed whatever their Content-Type; colly's OnXML skips
	// bodies that are not labelled xml or html.
	collector.OnResponse(func(r *colly.Response) {
		parsed, err := parseFeed(r.Body)
		if err != nil {
			fetchErr = err
			return
		}
		doc = parsed
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= http.StatusBadRequest {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(feed)
	}()
	select {
	case <-ctx.Done():
		return document{}, fmt.Errorf("sitemap fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return document{}, fmt.Errorf("sitemap response failed: %w", fetchErr)
		}
		if err != nil {
			return document{}, fmt.Errorf("sitemap visit failed: %w", err)
		}
		return doc, nil
	}
}

func parseFeed(body []byte) (document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return document{}, fmt.Errorf("parse sitemap xml: %w", err)
	}
	var doc document
	xmlquery.FindEach(root, "//urlset/url/loc", func(_ int, n *xmlquery.Node) {
		doc.pages = append(doc.pages, strings.TrimSpace(n.InnerText()))
	})
	xmlquery.FindEach(root, "//sitemapindex/sitemap/loc", func(_ int, n *xmlquery.Node) {
		doc.children = append(doc.children, strings.TrimSpace(n.InnerText()))
	})
	return doc, nil
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func newHTTPTransport(insecure bool) *http.Transport {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in for feeds behind self-signed certs.
	}
	return t
}

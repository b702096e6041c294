package browser

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/chromedp/chromedp"
	"golang.org/x/net/html"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// Extractor names accepted by NewExtractor.
const (
	ExtractorScript   = "script"
	ExtractorSnapshot = "snapshot"
)

// NewExtractor returns the DOM extractor registered under name. An empty
// name selects the script extractor.
func NewExtractor(name string) (audit.Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ExtractorScript:
		return ScriptExtractor{}, nil
	case ExtractorSnapshot:
		return SnapshotExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown dom extractor %q", name)
	}
}

// domSignalsScript computes the signals in-page. Title and meta lengths are
// JavaScript string lengths (UTF-16 code units).
const domSignalsScript = `(() => {
  const ld = document.querySelectorAll('script[type="application/ld+json"]').length;
  const meta = document.querySelector('meta[name="description"]');
  return {
    h1_count: document.querySelectorAll('h1').length,
    schema_count: ld,
    missing_alts: Array.from(document.querySelectorAll('img')).filter((img) => !img.getAttribute('alt')).length,
    title_length: (document.title || '').length,
    meta_description_length: meta ? (meta.getAttribute('content') || '').length : 0,
    jsonld_present: ld > 0,
  };
})()`

// ScriptExtractor evaluates a fixed routine inside the page.
type ScriptExtractor struct{}

// Extract implements audit.Extractor.
func (ScriptExtractor) Extract(ctx context.Context) (audit.DOMSignals, error) {
	var signals audit.DOMSignals
	if err := chromedp.Run(ctx, chromedp.Evaluate(domSignalsScript, &signals)); err != nil {
		return audit.DOMSignals{}, fmt.Errorf("evaluate dom script: %w", err)
	}
	return signals, nil
}

// SnapshotExtractor serializes the live DOM and computes the signals in Go.
type SnapshotExtractor struct{}

// Extract implements audit.Extractor.
func (SnapshotExtractor) Extract(ctx context.Context) (audit.DOMSignals, error) {
	var markup string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return audit.DOMSignals{}, fmt.Errorf("serialize dom: %w", err)
	}
	return ExtractHTML(markup)
}

var (
	selH1     = cascadia.MustCompile("h1")
	selImg    = cascadia.MustCompile("img")
	selJSONLD = cascadia.MustCompile(`script[type="application/ld+json"]`)
)

// ExtractHTML computes DOM signals from serialized markup with the same
// semantics as the in-page script.
func ExtractHTML(markup string) (audit.DOMSignals, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return audit.DOMSignals{}, fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	missing := 0
	for _, img := range cascadia.QueryAll(root, selImg) {
		if attr(img, "alt") == "" {
			missing++
		}
	}
	ld := len(cascadia.QueryAll(root, selJSONLD))

	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	meta := doc.Find(`meta[name="description"]`).First().AttrOr("content", "")

	return audit.DOMSignals{
		H1Count:               len(cascadia.QueryAll(root, selH1)),
		SchemaCount:           ld,
		MissingAlts:           missing,
		TitleLength:           utf16Len(title),
		MetaDescriptionLength: utf16Len(meta),
		JSONLDPresent:         ld > 0,
	}, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

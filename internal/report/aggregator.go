// Package report folds browser signals and audit-engine output into the
// fixed audit.Report schema.
package report

import (
	"time"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
)

// Audit identifiers read by Build.
const (
	auditHTTPStatus          = "http-status-code"
	auditDocumentTitle       = "document-title"
	auditMetaDescription     = "meta-description"
	auditCanonical           = "canonical"
	auditIsCrawlable         = "is-crawlable"
	auditTotalBlockingTime   = "total-blocking-time"
	auditUnusedJavaScript    = "unused-javascript"
	auditUnusedCSS           = "unused-css-rules"
	auditOptimizedImages     = "uses-optimized-images"
	auditColorContrast       = "color-contrast"
	auditAriaValidAttr       = "aria-valid-attr"
	auditLCP                 = "largest-contentful-paint"
	auditCLS                 = "cumulative-layout-shift"
	auditINP                 = "interaction-to-next-paint"
	auditFCP                 = "first-contentful-paint"
	auditServerResponseTime  = "server-response-time"
	auditSpeedIndex          = "speed-index"
	auditInteractive         = "interactive"
	auditScriptEvaluation    = "script-evaluation"
	auditScriptParse         = "script-parse-time"
	auditLongTasks           = "long-tasks"
	auditMainThreadBreakdown = "mainthread-work-breakdown"
	auditBootupTime          = "bootup-time"
	auditJSExecutionTime     = "javascript-execution-time"
	auditTasks               = "tasks"
	auditRenderBlocking      = "render-blocking-resources"
	auditPreload             = "uses-rel-preload"
	auditPreconnect          = "uses-rel-preconnect"
	auditCriticalChains      = "critical-request-chains"
	auditLargeJSLibraries    = "large-javascript-libraries"
	auditNoDocumentWrite     = "no-document-write"
	auditResponsiveImages    = "uses-responsive-images"
	auditWebPImages          = "uses-webp-images"
	auditOffscreenImages     = "offscreen-images"
	auditImageSizeResponsive = "image-size-responsive"
	auditAnimatedContent     = "efficient-animated-content"
	auditNetworkRequests     = "network-requests"
	auditNetworkRTT          = "network-rtt"
	auditRedirects           = "redirects"
	auditLCPElement          = "largest-contentful-paint-element"
	auditLayoutShiftElements = "layout-shift-elements"
	auditDiagnostics         = "diagnostics"
	auditThirdPartySummary   = "third-party-summary"
	auditThirdPartyFacades   = "third-party-facades"
	auditThirdPartyMediation = "third-party-mediations"
)

// Option decorates a report with run metadata.
type Option func(*audit.Report)

// WithRunID stamps the run identifier.
func WithRunID(id string) Option {
	return func(r *audit.Report) { r.RunID = id }
}

// WithAuditedAt stamps the audit completion time in UTC.
func WithAuditedAt(t time.Time) Option {
	return func(r *audit.Report) { r.AuditedAt = t.UTC() }
}

// WithScreenshotURI records where the page screenshot was stored.
func WithScreenshotURI(uri string) Option {
	return func(r *audit.Report) { r.ScreenshotURI = uri }
}

// Build assembles the report for url. It is pure: identical inputs produce
// identical reports, and none of the inputs are retained or modified.
func Build(
	url string,
	dom audit.DOMSignals,
	raw audit.RawAuditResult,
	consoleErrors []string,
	opts ...Option,
) audit.Report {
	jsErrors := make([]string, len(consoleErrors))
	copy(jsErrors, consoleErrors)

	r := audit.Report{
		URL: url,
		TechnicalSEO: audit.TechnicalSEO{
			Status:             numeric(raw, auditHTTPStatus),
			HasTitle:           passed(raw, auditDocumentTitle),
			HasMetaDescription: passed(raw, auditMetaDescription),
			HasCanonical:       passed(raw, auditCanonical),
			IsCrawlable:        passed(raw, auditIsCrawlable),
		},
		PerformanceIssues: audit.PerformanceIssues{
			BlockingTime: numeric(raw, auditTotalBlockingTime),
			UnusedJSKB:   savingsKB(raw, auditUnusedJavaScript),
			UnusedCSSKB:  savingsKB(raw, auditUnusedCSS),
			LargeImages:  itemURLs(raw, auditOptimizedImages),
		},
		HTMLSemantics: dom,
		JSErrors:      jsErrors,
		Accessibility: audit.Accessibility{
			ContrastIssues: itemCount(raw, auditColorContrast),
			AriaErrors:     itemCount(raw, auditAriaValidAttr),
		},
		CoreWebVitals: audit.CoreWebVitals{
			LCP:        numeric(raw, auditLCP),
			CLS:        numeric(raw, auditCLS),
			INP:        numeric(raw, auditINP),
			FCP:        numeric(raw, auditFCP),
			TTFB:       numeric(raw, auditServerResponseTime),
			SpeedIndex: numeric(raw, auditSpeedIndex),
			TTI:        numeric(raw, auditInteractive),
		},
		MainThread: audit.MainThread{
			TotalBlockingTime:       numeric(raw, auditTotalBlockingTime),
			ScriptEvaluation:        numeric(raw, auditScriptEvaluation),
			ScriptParse:             numeric(raw, auditScriptParse),
			LongTasks:               items(raw, auditLongTasks),
			MainThreadWorkBreakdown: items(raw, auditMainThreadBreakdown),
			BootupTime:              numeric(raw, auditBootupTime),
			JavaScriptExecutionTime: numeric(raw, auditJSExecutionTime),
			Tasks:                   items(raw, auditTasks),
		},
		RenderBlocking: audit.RenderBlocking{
			RenderBlockingResources: items(raw, auditRenderBlocking),
			Preloads:                items(raw, auditPreload),
			Preconnects:             items(raw, auditPreconnect),
			CriticalRequests:        chains(raw, auditCriticalChains),
		},
		CodeEfficiency: audit.CodeEfficiency{
			UnusedJS:        items(raw, auditUnusedJavaScript),
			UnusedCSS:       items(raw, auditUnusedCSS),
			JSLibraries:     items(raw, auditLargeJSLibraries),
			NoDocumentWrite: score(raw, auditNoDocumentWrite),
		},
		Images: audit.Images{
			UnoptimizedImages: items(raw, auditOptimizedImages),
			ResponsiveImages:  items(raw, auditResponsiveImages),
			WebPCandidates:    items(raw, auditWebPImages),
			OffscreenImages:   items(raw, auditOffscreenImages),
			OversizedImages:   items(raw, auditImageSizeResponsive),
			AnimatedContent:   items(raw, auditAnimatedContent),
		},
		Network: audit.Network{
			ServerResponseTime: numeric(raw, auditServerResponseTime),
			NetworkRequests:    items(raw, auditNetworkRequests),
			NetworkRTT:         numeric(raw, auditNetworkRTT),
			Redirects:          items(raw, auditRedirects),
		},
		Diagnostics: audit.Diagnostics{
			LCPElement:  items(raw, auditLCPElement),
			CLSElements: items(raw, auditLayoutShiftElements),
			Diagnostics: items(raw, auditDiagnostics),
		},
		ThirdParties: audit.ThirdParties{
			ThirdPartySummary:    items(raw, auditThirdPartySummary),
			ThirdPartyFacades:    items(raw, auditThirdPartyFacades),
			ThirdPartyMediations: items(raw, auditThirdPartyMediation),
		},
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

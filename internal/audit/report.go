package audit

import "time"

// Report is the canonical per-URL audit output. It is built once by the
// report aggregator and never mutated afterwards. Optional numeric fields are
// pointers so that "not computed" stays distinguishable from zero.
type Report struct {
	URL               string            `json:"url"`
	RunID             string            `json:"run_id,omitempty"`
	AuditedAt         time.Time         `json:"audited_at"`
	ScreenshotURI     string            `json:"screenshot_uri,omitempty"`
	TechnicalSEO      TechnicalSEO      `json:"technical_seo"`
	PerformanceIssues PerformanceIssues `json:"performance_issues"`
	HTMLSemantics     DOMSignals        `json:"html_semantics"`
	JSErrors          []string          `json:"js_errors"`
	Accessibility     Accessibility     `json:"accessibility"`
	CoreWebVitals     CoreWebVitals     `json:"coreWebVitals"`
	MainThread        MainThread        `json:"mainThread"`
	RenderBlocking    RenderBlocking    `json:"renderBlocking"`
	CodeEfficiency    CodeEfficiency    `json:"codeEfficiency"`
	Images            Images            `json:"images"`
	Network           Network           `json:"network"`
	Diagnostics       Diagnostics       `json:"diagnostics"`
	ThirdParties      ThirdParties      `json:"thirdParties"`
}

// TechnicalSEO groups crawlability and head-tag checks.
type TechnicalSEO struct {
	Status             *float64 `json:"status,omitempty"`
	HasTitle           bool     `json:"has_title"`
	HasMetaDescription bool     `json:"has_meta_description"`
	HasCanonical       bool     `json:"has_canonical"`
	IsCrawlable        bool     `json:"is_crawlable"`
}

// PerformanceIssues summarizes the heaviest performance opportunities.
type PerformanceIssues struct {
	BlockingTime *float64 `json:"blocking_time,omitempty"`
	UnusedJSKB   *float64 `json:"unused_js_kb,omitempty"`
	UnusedCSSKB  *float64 `json:"unused_css_kb,omitempty"`
	LargeImages  []string `json:"large_images,omitempty"`
}

// Accessibility counts failing accessibility checks.
type Accessibility struct {
	ContrastIssues int `json:"contrast_issues"`
	AriaErrors     int `json:"aria_errors"`
}

// CoreWebVitals holds lab timings in milliseconds (CLS is unitless).
type CoreWebVitals struct {
	LCP        *float64 `json:"lcp,omitempty"`
	CLS        *float64 `json:"cls,omitempty"`
	INP        *float64 `json:"inp,omitempty"`
	FCP        *float64 `json:"fcp,omitempty"`
	TTFB       *float64 `json:"ttfb,omitempty"`
	SpeedIndex *float64 `json:"speedIndex,omitempty"`
	TTI        *float64 `json:"tti,omitempty"`
}

// MainThread breaks down main-thread work.
type MainThread struct {
	TotalBlockingTime       *float64 `json:"totalBlockingTime,omitempty"`
	ScriptEvaluation        *float64 `json:"scriptEvaluation,omitempty"`
	ScriptParse             *float64 `json:"scriptParse,omitempty"`
	LongTasks               []Item   `json:"longTasks"`
	MainThreadWorkBreakdown []Item   `json:"mainThreadWorkBreakdown"`
	BootupTime              *float64 `json:"bootupTime,omitempty"`
	JavaScriptExecutionTime *float64 `json:"javascriptExecutionTime,omitempty"`
	Tasks                   []Item   `json:"tasks"`
}

// RenderBlocking lists resources delaying first paint.
type RenderBlocking struct {
	RenderBlockingResources []Item         `json:"renderBlockingResources"`
	Preloads                []Item         `json:"preloads"`
	Preconnects             []Item         `json:"preconnects"`
	CriticalRequests        map[string]any `json:"criticalRequests"`
}

// CodeEfficiency lists unused and oversized code.
type CodeEfficiency struct {
	UnusedJS        []Item   `json:"unusedJS"`
	UnusedCSS       []Item   `json:"unusedCSS"`
	JSLibraries     []Item   `json:"jsLibraries"`
	NoDocumentWrite *float64 `json:"noDocumentWrite,omitempty"`
}

// Images lists image delivery diagnostics.
type Images struct {
	UnoptimizedImages []Item `json:"unoptimizedImages"`
	ResponsiveImages  []Item `json:"responsiveImages"`
	WebPCandidates    []Item `json:"webpCandidates"`
	OffscreenImages   []Item `json:"offscreenImages"`
	OversizedImages   []Item `json:"oversizedImages"`
	AnimatedContent   []Item `json:"animatedContent"`
}

// Network lists transport-level diagnostics.
type Network struct {
	ServerResponseTime *float64 `json:"serverResponseTime,omitempty"`
	NetworkRequests    []Item   `json:"networkRequests"`
	NetworkRTT         *float64 `json:"networkRTT,omitempty"`
	Redirects          []Item   `json:"redirects"`
}

// Diagnostics holds element-level diagnostics.
type Diagnostics struct {
	LCPElement  []Item `json:"lcpElement"`
	CLSElements []Item `json:"clsElements"`
	Diagnostics []Item `json:"diagnostics"`
}

// ThirdParties summarizes cost attributed to other origins.
type ThirdParties struct {
	ThirdPartySummary    []Item `json:"thirdPartySummary"`
	ThirdPartyFacades    []Item `json:"thirdPartyFacades"`
	ThirdPartyMediations []Item `json:"thirdPartyMediations"`
}

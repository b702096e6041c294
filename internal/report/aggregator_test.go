package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/realtime-site-auditor/internal/audit"
	"github.com/JakeFAU/realtime-site-auditor/internal/report"
)

func f64(v float64) *float64 { return &v }

func loadAudits(t *testing.T) audit.RawAuditResult {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "audits.json"))
	require.NoError(t, err)
	var raw audit.RawAuditResult
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

func sampleDOM() audit.DOMSignals {
	return audit.DOMSignals{
		H1Count:       1,
		SchemaCount:   2,
		MissingAlts:   1,
		TitleLength:   12,
		JSONLDPresent: true,
	}
}

func TestBuildMatchesGolden(t *testing.T) {
	raw := loadAudits(t)
	got := report.Build(
		"https://example.com/",
		sampleDOM(),
		raw,
		[]string{"Uncaught TypeError: x is undefined"},
		report.WithRunID("run-1"),
		report.WithAuditedAt(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)),
		report.WithScreenshotURI("memory://run-1/screenshots/example.png"),
	)

	encoded, err := json.MarshalIndent(got, "", "  ")
	require.NoError(t, err)
	golden, err := os.ReadFile(filepath.Join("testdata", "report.golden.json"))
	require.NoError(t, err)
	assert.JSONEq(t, string(golden), string(encoded))
}

func TestBuildIsIdempotent(t *testing.T) {
	raw := loadAudits(t)
	errs := []string{"boom"}
	a := report.Build("https://example.com/", sampleDOM(), raw, errs)
	b := report.Build("https://example.com/", sampleDOM(), raw, errs)
	assert.True(t, reflect.DeepEqual(a, b))
}

func TestBuildDoesNotAliasInputs(t *testing.T) {
	raw := loadAudits(t)
	errs := []string{"boom"}
	got := report.Build("https://example.com/", sampleDOM(), raw, errs)

	errs[0] = "changed"
	got.CodeEfficiency.UnusedJS[0]["url"] = "mutated"
	got.RenderBlocking.CriticalRequests["ABC"] = nil

	assert.Equal(t, "boom", got.JSErrors[0])
	assert.Equal(t, "https://example.com/app.js", raw["unused-javascript"].Details.Items[0]["url"])
	assert.NotNil(t, raw["critical-request-chains"].Details.Chains["ABC"])
}

func TestBuildDefaultsWhenAuditsMissing(t *testing.T) {
	got := report.Build("https://example.com/", audit.DOMSignals{}, nil, nil)

	t.Run("numeric", func(t *testing.T) {
		assert.Nil(t, got.TechnicalSEO.Status)
		assert.Nil(t, got.CoreWebVitals.LCP)
		assert.Nil(t, got.Network.NetworkRTT)
	})
	t.Run("score", func(t *testing.T) {
		assert.Nil(t, got.CodeEfficiency.NoDocumentWrite)
	})
	t.Run("passed", func(t *testing.T) {
		assert.False(t, got.TechnicalSEO.HasTitle)
		assert.False(t, got.TechnicalSEO.IsCrawlable)
	})
	t.Run("items", func(t *testing.T) {
		require.NotNil(t, got.MainThread.LongTasks)
		assert.Empty(t, got.MainThread.LongTasks)
		require.NotNil(t, got.ThirdParties.ThirdPartySummary)
		assert.Empty(t, got.Images.WebPCandidates)
	})
	t.Run("item count", func(t *testing.T) {
		assert.Equal(t, 0, got.Accessibility.ContrastIssues)
		assert.Equal(t, 0, got.Accessibility.AriaErrors)
	})
	t.Run("item urls", func(t *testing.T) {
		assert.Nil(t, got.PerformanceIssues.LargeImages)
	})
	t.Run("savings", func(t *testing.T) {
		assert.Nil(t, got.PerformanceIssues.UnusedJSKB)
		assert.Nil(t, got.PerformanceIssues.UnusedCSSKB)
	})
	t.Run("chains", func(t *testing.T) {
		require.NotNil(t, got.RenderBlocking.CriticalRequests)
		assert.Empty(t, got.RenderBlocking.CriticalRequests)
	})
	t.Run("js errors", func(t *testing.T) {
		require.NotNil(t, got.JSErrors)
		assert.Empty(t, got.JSErrors)
	})
}

func TestBuildAuditPresentWithoutDetails(t *testing.T) {
	raw := audit.RawAuditResult{
		"unused-css-rules":        {Score: f64(1)},
		"color-contrast":          {Score: f64(1)},
		"critical-request-chains": {Score: nil},
		"document-title":          {Score: f64(0.5)},
	}
	got := report.Build("https://example.com/", audit.DOMSignals{}, raw, nil)
	assert.Nil(t, got.PerformanceIssues.UnusedCSSKB)
	assert.Empty(t, got.CodeEfficiency.UnusedCSS)
	assert.Equal(t, 0, got.Accessibility.ContrastIssues)
	assert.Empty(t, got.RenderBlocking.CriticalRequests)
	assert.False(t, got.TechnicalSEO.HasTitle)
}

func TestBuildConvertsSavingsToKB(t *testing.T) {
	raw := audit.RawAuditResult{
		"unused-javascript": {Details: &audit.AuditDetails{OverallSavingsBytes: f64(2048)}},
		"unused-css-rules":  {Details: &audit.AuditDetails{OverallSavingsBytes: f64(1536)}},
	}
	got := report.Build("https://example.com/", audit.DOMSignals{}, raw, nil)
	require.NotNil(t, got.PerformanceIssues.UnusedJSKB)
	assert.InDelta(t, 2.0, *got.PerformanceIssues.UnusedJSKB, 0)
	require.NotNil(t, got.PerformanceIssues.UnusedCSSKB)
	assert.InDelta(t, 1.5, *got.PerformanceIssues.UnusedCSSKB, 0)
}

func TestBuildOmitsMissingLCP(t *testing.T) {
	raw := audit.RawAuditResult{
		"first-contentful-paint": {NumericValue: f64(900)},
	}
	got := report.Build("https://example.com/", audit.DOMSignals{}, raw, nil)
	assert.Nil(t, got.CoreWebVitals.LCP)

	encoded, err := json.Marshal(got.CoreWebVitals)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fcp": 900}`, string(encoded))
}

func TestBuildLargeImagesSkipsItemsWithoutURL(t *testing.T) {
	raw := audit.RawAuditResult{
		"uses-optimized-images": {Details: &audit.AuditDetails{Items: []audit.Item{
			{"url": "https://example.com/a.png"},
			{"node": "svg"},
		}}},
	}
	got := report.Build("https://example.com/", audit.DOMSignals{}, raw, nil)
	assert.Equal(t, []string{"https://example.com/a.png"}, got.PerformanceIssues.LargeImages)
}

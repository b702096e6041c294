// Package metrics exposes Prometheus collectors for the site auditor.
package metrics

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// URL outcome labels.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var (
	auditorURLsTotal              *prometheus.CounterVec
	auditorFailuresTotal          *prometheus.CounterVec
	auditorStageDurationSeconds   *prometheus.HistogramVec
	auditorSampleSize             prometheus.Gauge
	auditorRateLimitDelaysSeconds *prometheus.HistogramVec
	httpRequestsTotal             *prometheus.CounterVec
	httpRequestDurationSeconds    *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditorURLsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_urls_total",
				Help: "Total number of audited URLs, labeled by outcome.",
			},
			[]string{"status"},
		)

		auditorFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auditor_failures_total",
				Help: "Total number of failed URL audits, labeled by failure kind.",
			},
			[]string{"kind"},
		)

		auditorStageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditor_stage_duration_seconds",
				Help:    "Histogram of per-URL stage durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		)

		auditorSampleSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "auditor_sample_size",
				Help: "Number of URLs sampled for the current run.",
			},
		)

		auditorRateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auditor_rate_limit_delays_seconds",
				Help:    "Histogram of per-host politeness wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveURL counts one finished URL audit.
func ObserveURL(status string) {
	auditorURLsTotal.WithLabelValues(status).Inc()
}

// ObserveFailure counts a failed URL audit by kind.
func ObserveFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	auditorFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, duration time.Duration) {
	auditorStageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// SetSampleSize publishes the size of the current sample.
func SetSampleSize(n int) {
	auditorSampleSize.Set(float64(n))
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	auditorRateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Push sends the default registry to a Pushgateway under job, grouped by
// run_id.
func Push(gatewayURL, job, runID string) error {
	pusher := push.New(gatewayURL, job).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("run_id", runID)
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

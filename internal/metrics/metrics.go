// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapesTotal               *prometheus.CounterVec
	scrapeBytesTotal           *prometheus.CounterVec
	fetchModeTotal             *prometheus.CounterVec
	bulkBatchSize              prometheus.Histogram
	quotaRejectionsTotal       prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_scrapes_total",
				Help: "Total number of scrape attempts, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		scrapeBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_bytes_total",
				Help: "Total number of HTML bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		fetchModeTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_fetch_mode_total",
				Help: "Successful fetches labeled by mode (static or browser).",
			},
			[]string{"mode"},
		)

		bulkBatchSize = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_bulk_batch_size",
				Help:    "Number of URLs submitted per bulk scrape.",
				Buckets: []float64{1, 2, 5, 10, 15, 20},
			},
		)

		quotaRejectionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scraper_quota_rejections_total",
				Help: "Scrapes rejected because the caller exhausted its quota.",
			},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a URL.
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

// ObserveScrape records one scrape outcome and the bytes it fetched.
func ObserveScrape(site string, outcome string, bytesFetched int) {
	Init()
	sanitizedSite := SanitizeSite(site)
	scrapesTotal.WithLabelValues(sanitizedSite, outcome).Inc()
	if bytesFetched > 0 {
		scrapeBytesTotal.WithLabelValues(sanitizedSite).Add(float64(bytesFetched))
	}
}

// ObserveFetchMode counts a successful fetch by the path that served it.
func ObserveFetchMode(usedBrowser bool) {
	Init()
	mode := "static"
	if usedBrowser {
		mode = "browser"
	}
	fetchModeTotal.WithLabelValues(mode).Inc()
}

// ObserveBulk records the size of a bulk request.
func ObserveBulk(size int) {
	Init()
	bulkBatchSize.Observe(float64(size))
}

// ObserveQuotaRejection counts a scrape refused by the quota.
func ObserveQuotaRejection() {
	Init()
	quotaRejectionsTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

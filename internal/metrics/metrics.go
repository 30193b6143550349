package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the service's counters and histograms, partitioned by provider.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	pagesTotal      *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec
	fetchErrors     *prometheus.CounterVec
	fetchLatency    *prometheus.HistogramVec
	tokenLookups    *prometheus.CounterVec
	aggregations    *prometheus.CounterVec
	aggregateTime   prometheus.Histogram
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		// Fetcher
		pagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridgewrapped",
			Subsystem: "fetcher",
			Name:      "pages_total",
			Help:      "Provider pages requested, by outcome",
		}, []string{"provider", "outcome"}),

		recordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridgewrapped",
			Subsystem: "fetcher",
			Name:      "records_total",
			Help:      "Provider records seen, by result (kept, dropped, out_of_range)",
		}, []string{"provider", "result"}),

		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridgewrapped",
			Subsystem: "fetcher",
			Name:      "errors_total",
			Help:      "Provider fetches that stopped early (after retry exhaustion)",
		}, []string{"provider"}),

		fetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bridgewrapped",
			Subsystem: "fetcher",
			Name:      "fetch_duration_seconds",
			Help:      "Full history fetch duration per provider",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"provider"}),

		// Tokens
		tokenLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridgewrapped",
			Subsystem: "tokens",
			Name:      "lookups_total",
			Help:      "Token metadata resolutions, by source (cache, static, remote, miss)",
		}, []string{"source"}),

		// Aggregator
		aggregations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridgewrapped",
			Subsystem: "aggregator",
			Name:      "runs_total",
			Help:      "Wrapped statistics computations, by outcome",
		}, []string{"outcome"}),

		aggregateTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bridgewrapped",
			Subsystem: "aggregator",
			Name:      "run_duration_seconds",
			Help:      "End-to-end wrapped statistics duration",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		}),

		// HTTP
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bridgewrapped",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests, by route and status code",
		}, []string{"route", "code"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bridgewrapped",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) PageFetched(provider string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.pagesTotal.WithLabelValues(provider, outcome).Inc()
}

func (c *Collector) Records(provider, result string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.recordsTotal.WithLabelValues(provider, result).Add(float64(n))
}

func (c *Collector) FetchFinished(provider string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.fetchLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err != nil {
		c.fetchErrors.WithLabelValues(provider).Inc()
	}
}

func (c *Collector) TokenLookup(source string) {
	if c == nil {
		return
	}
	c.tokenLookups.WithLabelValues(source).Inc()
}

func (c *Collector) AggregationFinished(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.aggregations.WithLabelValues(outcome).Inc()
	c.aggregateTime.Observe(elapsed.Seconds())
}

func (c *Collector) RequestServed(route string, code int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

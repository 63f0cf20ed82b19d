package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

// HTTPServerMetrics exports request metrics for the API together with the
// search outcomes reported by the search use case and the resilience
// executor.
type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchRequestsTotal *prometheus.CounterVec
	searchRows          *prometheus.HistogramVec
	searchDuration      *prometheus.HistogramVec
	facetRequestsTotal  *prometheus.CounterVec
	facetDuration       *prometheus.HistogramVec
	retriesTotal        *prometheus.CounterVec
	breakerOpen         *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total catalog searches by strategy and outcome.",
		},
		[]string{"service", "strategy", "outcome"},
	)
	searchRows := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "returned_rows",
			Help:      "Distribution of rows returned per successful search.",
			Buckets:   []float64{0, 1, 2, 4, 8, 12, 16, 20},
		},
		[]string{"service", "strategy"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Catalog search duration in seconds, embedding included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	facetRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "facets",
			Name:      "requests_total",
			Help:      "Total facet aggregations by strategy and outcome.",
		},
		[]string{"service", "strategy", "outcome"},
	)
	facetDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "facets",
			Name:      "duration_seconds",
			Help:      "Facet aggregation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Total retried dependency calls by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 while the operation's circuit breaker is not closed.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchRequestsTotal,
		searchRows,
		searchDuration,
		facetRequestsTotal,
		facetDuration,
		retriesTotal,
		breakerOpen,
	)

	return &HTTPServerMetrics{
		service:             service,
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		searchRequestsTotal: searchRequestsTotal,
		searchRows:          searchRows,
		searchDuration:      searchDuration,
		facetRequestsTotal:  facetRequestsTotal,
		facetDuration:       facetDuration,
		retriesTotal:        retriesTotal,
		breakerOpen:         breakerOpen,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps label cardinality bounded to the routes the API serves.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/products/"), path == "/healthz", path == "/metrics":
		return path
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) ObserveSearch(strategy string, rows int, failed bool, duration time.Duration) {
	strategy = labelOrUnknown(strategy)
	m.searchRequestsTotal.WithLabelValues(m.service, strategy, outcome(failed)).Inc()
	m.searchDuration.WithLabelValues(m.service, strategy).Observe(duration.Seconds())
	if !failed {
		m.searchRows.WithLabelValues(m.service, strategy).Observe(float64(rows))
	}
}

func (m *HTTPServerMetrics) ObserveFacets(strategy string, failed bool, duration time.Duration) {
	strategy = labelOrUnknown(strategy)
	m.facetRequestsTotal.WithLabelValues(m.service, strategy, outcome(failed)).Inc()
	m.facetDuration.WithLabelValues(m.service, strategy).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, labelOrUnknown(operation)).Inc()
}

func (m *HTTPServerMetrics) ObserveBreakerState(operation string, state string) {
	value := 1.0
	if state == "closed" {
		value = 0
	}
	m.breakerOpen.WithLabelValues(m.service, labelOrUnknown(operation)).Set(value)
}

func outcome(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}

func labelOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

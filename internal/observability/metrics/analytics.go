package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AnalyticsMetrics is exported by the analytics worker that consumes search
// events.
type AnalyticsMetrics struct {
	service  string
	registry *prometheus.Registry

	eventsTotal      *prometheus.CounterVec
	zeroResultsTotal *prometheus.CounterVec
	eventsInFlight   prometheus.Gauge
	eventLag         *prometheus.HistogramVec
	searchLatency    *prometheus.HistogramVec
}

func NewAnalyticsMetrics(service string) *AnalyticsMetrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "search_events_total",
			Help:      "Total consumed search events by strategy and search outcome.",
		},
		[]string{"service", "strategy", "outcome"},
	)
	zeroResultsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "zero_result_searches_total",
			Help:      "Successful searches that matched no product.",
		},
		[]string{"service", "strategy"},
	)
	eventsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "events_in_flight",
			Help:      "Number of search events being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "event_lag_seconds",
			Help:      "Delay between a search finishing and its event being consumed.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)
	searchLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "reported_search_duration_seconds",
			Help:      "Search duration as reported by the API in each event.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)

	registry.MustRegister(eventsTotal, zeroResultsTotal, eventsInFlight, eventLag, searchLatency)

	return &AnalyticsMetrics{
		service:          service,
		registry:         registry,
		eventsTotal:      eventsTotal,
		zeroResultsTotal: zeroResultsTotal,
		eventsInFlight:   eventsInFlight,
		eventLag:         eventLag,
		searchLatency:    searchLatency,
	}
}

func (m *AnalyticsMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *AnalyticsMetrics) StartEvent() {
	m.eventsInFlight.Inc()
}

func (m *AnalyticsMetrics) FinishEvent(strategy string, rows int, failed bool, reported time.Duration) {
	m.eventsInFlight.Dec()

	strategy = labelOrUnknown(strategy)
	m.eventsTotal.WithLabelValues(m.service, strategy, outcome(failed)).Inc()
	m.searchLatency.WithLabelValues(m.service, strategy).Observe(reported.Seconds())
	if !failed && rows == 0 {
		m.zeroResultsTotal.WithLabelValues(m.service, strategy).Inc()
	}
}

func (m *AnalyticsMetrics) ObserveEventLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

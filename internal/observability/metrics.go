package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// hazard polling engine.
type Metrics struct {
	Polls         prometheus.Counter
	PollFailures  prometheus.Counter
	PollDuration  prometheus.Histogram
	PollerRunning prometheus.Gauge

	// Feed client metrics.
	FeaturesFetched  prometheus.Counter
	CategoryFailures *prometheus.CounterVec // labels: category, reason={auth,forbidden,shape,transient}

	// Proximity and diff metrics.
	HazardsInScope prometheus.Gauge
	TrackedHazards prometheus.Gauge
	EventsEmitted  *prometheus.CounterVec // labels: kind={appeared,updated,cleared}
	SinkErrors     prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "polls_total",
			Help:      "Total poll passes started.",
		}),
		PollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "poll_failures_total",
			Help:      "Total poll passes that failed outright.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazardwatch",
			Name:      "poll_duration_seconds",
			Help:      "Duration of a complete fetch-filter-diff pass.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazardwatch",
			Name:      "poller_running",
			Help:      "1 when the poll loop is active, 0 when shut down.",
		}),
		FeaturesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "features_fetched_total",
			Help:      "Total hazard features parsed from merged feed snapshots.",
		}),
		CategoryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "category_failures_total",
			Help:      "Category-level fetch failures by category and reason.",
		}, []string{"category", "reason"}),
		HazardsInScope: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazardwatch",
			Name:      "hazards_in_scope",
			Help:      "Hazards within range of a reference point after the last pass.",
		}),
		TrackedHazards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazardwatch",
			Name:      "tracked_hazards",
			Help:      "Size of the tracked hazard set after the last diff pass.",
		}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "events_emitted_total",
			Help:      "Transition events emitted by kind.",
		}, []string{"kind"}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazardwatch",
			Name:      "sink_errors_total",
			Help:      "Event deliveries rejected by a sink.",
		}),
	}

	prometheus.MustRegister(
		m.Polls,
		m.PollFailures,
		m.PollDuration,
		m.PollerRunning,
		m.FeaturesFetched,
		m.CategoryFailures,
		m.HazardsInScope,
		m.TrackedHazards,
		m.EventsEmitted,
		m.SinkErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Polls:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazardwatch", Name: "polls_total"}),
		PollFailures:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazardwatch", Name: "poll_failures_total"}),
		PollDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "hazardwatch", Name: "poll_duration_seconds"}),
		PollerRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazardwatch", Name: "poller_running"}),
		FeaturesFetched:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazardwatch", Name: "features_fetched_total"}),
		CategoryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazardwatch", Name: "category_failures_total"}, []string{"category", "reason"}),
		HazardsInScope:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazardwatch", Name: "hazards_in_scope"}),
		TrackedHazards:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "hazardwatch", Name: "tracked_hazards"}),
		EventsEmitted:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "hazardwatch", Name: "events_emitted_total"}, []string{"kind"}),
		SinkErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "hazardwatch", Name: "sink_errors_total"}),
	}
}

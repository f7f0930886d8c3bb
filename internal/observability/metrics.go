package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the episode service.
type Metrics struct {
	FetchesTotal     *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration    prometheus.Histogram
	StaleFetches     prometheus.Counter
	SelectionChanges *prometheus.CounterVec // labels: kind={day,period,refresh}
	InvalidPeriods   prometheus.Counter
	AffectedRegions  prometheus.Gauge

	// Upstream cache metrics.
	Cache *prometheus.CounterVec // labels: result={hit,miss,shared}

	// Refresh pipeline metrics.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
	PipelineRunning    prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "episodes",
			Name:      "fetches_total",
			Help:      "Episode source fetches by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "episodes",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of an episode fetch for one day.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		StaleFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "episodes",
			Name:      "stale_fetches_total",
			Help:      "Fetch results discarded because a newer day selection superseded them.",
		}),
		SelectionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "episodes",
			Name:      "selection_changes_total",
			Help:      "Applied selection transitions by kind.",
		}, []string{"kind"}),
		InvalidPeriods: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "episodes",
			Name:      "invalid_period_selections_total",
			Help:      "Period selections ignored because the name was not available.",
		}),
		AffectedRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "episodes",
			Name:      "affected_regions",
			Help:      "Regions with at least one affectation in the selected period.",
		}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "episodes",
			Name:      "cache_total",
			Help:      "Episode cache lookups by result.",
		}, []string{"result"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "episodes",
			Name:      "snapshots_published_total",
			Help:      "Classified snapshots written to the sink.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "episodes",
			Name:      "publish_errors_total",
			Help:      "Failed snapshot publish attempts.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "episodes",
			Name:      "pipeline_running",
			Help:      "1 when the refresh pipeline is active, 0 when shut down.",
		}),
	}

	prometheus.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.StaleFetches,
		m.SelectionChanges,
		m.InvalidPeriods,
		m.AffectedRegions,
		m.Cache,
		m.SnapshotsPublished,
		m.PublishErrors,
		m.PipelineRunning,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics that no registry collects. Components
// constructed without an explicit metrics sink record into these.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		FetchesTotal:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "episodes", Name: "fetches_total"}, []string{"outcome"}),
		FetchDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "episodes", Name: "fetch_duration_seconds"}),
		StaleFetches:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "episodes", Name: "stale_fetches_total"}),
		SelectionChanges:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "episodes", Name: "selection_changes_total"}, []string{"kind"}),
		InvalidPeriods:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "episodes", Name: "invalid_period_selections_total"}),
		AffectedRegions:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "episodes", Name: "affected_regions"}),
		Cache:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "episodes", Name: "cache_total"}, []string{"result"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "episodes", Name: "snapshots_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "episodes", Name: "publish_errors_total"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "episodes", Name: "pipeline_running"}),
	}
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewUnregisteredMetrics()
}

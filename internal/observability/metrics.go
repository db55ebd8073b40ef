package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// risk engine and its ingest path.
type Metrics struct {
	MapQueries      prometheus.Counter
	LocationQueries prometheus.Counter
	QueryErrors     prometheus.Counter

	ScoringDuration prometheus.Histogram
	HotspotCount    prometheus.Histogram

	// Refinement model metrics.
	ModelTrained     prometheus.Gauge
	TrainingDuration prometheus.Histogram
	TrainingRuns     *prometheus.CounterVec // labels: outcome={success,insufficient_data,error,in_flight}
	ScoreFallbacks   *prometheus.CounterVec // labels: reason={model_not_trained,prediction_failed}

	// Kafka ingest metrics.
	IngestMessages prometheus.Counter
	IngestErrors   prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		MapQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "map_queries_total",
			Help:      "Total full-map risk queries served.",
		}),
		LocationQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "location_queries_total",
			Help:      "Total single-point risk queries served.",
		}),
		QueryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "query_errors_total",
			Help:      "Total queries that failed because the incident store was unavailable.",
		}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk_engine",
			Name:      "scoring_duration_seconds",
			Help:      "Duration of a complete map or location scoring pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		HotspotCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk_engine",
			Name:      "hotspot_count",
			Help:      "Number of hotspots retained per map query.",
			Buckets:   []float64{0, 1, 5, 10, 20, 30, 40, 50},
		}),
		ModelTrained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "risk_engine",
			Name:      "model_trained",
			Help:      "1 when a refinement model is live, 0 when scoring is rule-based only.",
		}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "risk_engine",
			Name:      "training_duration_seconds",
			Help:      "Duration of refinement model training runs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "training_runs_total",
			Help:      "Refinement training attempts by outcome.",
		}, []string{"outcome"}),
		ScoreFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "score_fallbacks_total",
			Help:      "Scores served by the rule-based path instead of the model, by reason.",
		}, []string{"reason"}),
		IngestMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "ingest_messages_total",
			Help:      "Incident reports consumed from the ingest topic.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "ingest_errors_total",
			Help:      "Ingest messages dropped because they could not be parsed or stored.",
		}),
	}

	prometheus.MustRegister(
		m.MapQueries,
		m.LocationQueries,
		m.QueryErrors,
		m.ScoringDuration,
		m.HotspotCount,
		m.ModelTrained,
		m.TrainingDuration,
		m.TrainingRuns,
		m.ScoreFallbacks,
		m.IngestMessages,
		m.IngestErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		MapQueries:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "risk_engine", Name: "map_queries_total"}),
		LocationQueries:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "risk_engine", Name: "location_queries_total"}),
		QueryErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "risk_engine", Name: "query_errors_total"}),
		ScoringDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "risk_engine", Name: "scoring_duration_seconds"}),
		HotspotCount:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "risk_engine", Name: "hotspot_count"}),
		ModelTrained:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "risk_engine", Name: "model_trained"}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "risk_engine", Name: "training_duration_seconds"}),
		TrainingRuns:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "risk_engine", Name: "training_runs_total"}, []string{"outcome"}),
		ScoreFallbacks:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "risk_engine", Name: "score_fallbacks_total"}, []string{"reason"}),
		IngestMessages:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "risk_engine", Name: "ingest_messages_total"}),
		IngestErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "risk_engine", Name: "ingest_errors_total"}),
	}
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/menta2k/aqua-chroma/pkg/types"
)

const namespace = "aqua_chroma"

// Metrics holds the Prometheus collectors for the analysis service.
type Metrics struct {
	Runs        *prometheus.CounterVec // labels: status={OK,NIGHT,CLOUDY,ERROR}
	RunDuration prometheus.Histogram

	// Last measured values.
	Blueness   prometheus.Gauge
	CloudCover prometheus.Gauge

	ArtifactsWritten prometheus.Counter
	ArtifactsDropped prometheus.Counter
	ArtifactErrors   prometheus.Counter

	MaskCache   *prometheus.CounterVec // labels: result={hit,miss}
	FetchErrors prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		Blueness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blueness_percent",
			Help:      "Blueness index of the most recent OK run.",
		}),
		CloudCover: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cloud_cover_percent",
			Help:      "Cloud cover of the most recent run that measured it.",
		}),
		ArtifactsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Debug images written to disk.",
		}),
		ArtifactsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_dropped_total",
			Help:      "Debug images dropped because the write queue was full.",
		}),
		ArtifactErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_errors_total",
			Help:      "Debug images that failed to encode or write.",
		}),
		MaskCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mask_cache_total",
			Help:      "Sea mask cache lookups by result.",
		}, []string{"result"}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "Image source failures; no run is recorded for these.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Runs,
		m.RunDuration,
		m.Blueness,
		m.CloudCover,
		m.ArtifactsWritten,
		m.ArtifactsDropped,
		m.ArtifactErrors,
		m.MaskCache,
		m.FetchErrors,
	}
}

// ObserveResult records the outcome of one run
func (m *Metrics) ObserveResult(r types.AnalysisResult, seconds float64) {
	m.Runs.WithLabelValues(string(r.Status)).Inc()
	m.RunDuration.Observe(seconds)
	if r.BluenessPercent != nil {
		m.Blueness.Set(*r.BluenessPercent)
	}
	if r.CloudCoverPercent != nil {
		m.CloudCover.Set(*r.CloudCoverPercent)
	}
}

// ObserveMaskCache records a mask cache lookup; it matches the mask.Cache observer signature
func (m *Metrics) ObserveMaskCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.MaskCache.WithLabelValues(result).Inc()
}

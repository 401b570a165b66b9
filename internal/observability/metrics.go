package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stages of the turn pipeline tracked by the rolling latency window.
const (
	StageLoad    = "load"
	StageInfer   = "infer"
	StagePersist = "persist"
	StageTurn    = "turn"
)

// Metrics groups all Prometheus instruments used by the gateway, plus a
// rolling per-stage latency window for the perf endpoint.
type Metrics struct {
	Turns              *prometheus.CounterVec
	InferenceLatency   prometheus.Histogram
	StoreReadAnomalies prometheus.Counter
	EvictedTurns       prometheus.Counter
	TranscriptLength   prometheus.Histogram

	stages *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		stages: newStageWindow(256),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled chat turns by outcome.",
		}, []string{"outcome"}),
		InferenceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_latency_ms",
			Help:      "Latency of inference backend calls in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}),
		StoreReadAnomalies: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_read_anomalies_total",
			Help:      "Stored transcripts discarded because they could not be parsed.",
		}),
		EvictedTurns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_turns_total",
			Help:      "Turns dropped by context windowing.",
		}),
		TranscriptLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcript_turns",
			Help:      "Transcript length in turns at persist time.",
			Buckets:   []float64{2, 4, 6, 9, 12, 15, 18},
		}),
	}
}

func (m *Metrics) ObserveInferenceLatency(d time.Duration) {
	m.InferenceLatency.Observe(float64(d.Milliseconds()))
	m.ObserveStage(StageInfer, d)
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stages.Observe(stage, float64(d.Microseconds())/1000)
}

func (m *Metrics) StageSnapshot() StageSnapshot {
	return m.stages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Package metrics provides Prometheus-based metrics recording for pipeline
// runs and stage execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records run and stage metrics.
type Recorder interface {
	RunStarted()
	RunFinished(outcome string)
	StageFinished(stageID, status string, duration time.Duration)
	TokenEmitted(stageID string)
}

// Run outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	runsStarted   prometheus.Counter
	runsFinished  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stagesTotal   *prometheus.CounterVec
	tokensTotal   *prometheus.CounterVec
}

// NewPrometheusRecorder creates a recorder registered against the default
// Prometheus registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		runsStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_runs_started_total",
				Help: "Total number of pipeline runs started",
			},
		),
		runsFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_finished_total",
				Help: "Total number of pipeline runs finished by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Duration of stage execution from started to terminal event",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_stages_total",
				Help: "Total number of stage executions by terminal status",
			},
			[]string{"stage", "status"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_stage_tokens_total",
				Help: "Total number of token events streamed per stage",
			},
			[]string{"stage"},
		),
	}
}

func (p *PrometheusRecorder) RunStarted() {
	p.runsStarted.Inc()
}

func (p *PrometheusRecorder) RunFinished(outcome string) {
	p.runsFinished.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) StageFinished(stageID, status string, duration time.Duration) {
	p.stagesTotal.WithLabelValues(stageID, status).Inc()
	p.stageDuration.WithLabelValues(stageID).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) TokenEmitted(stageID string) {
	p.tokensTotal.WithLabelValues(stageID).Inc()
}

// NopRecorder discards all metrics. Used in tests and when metrics are
// disabled.
type NopRecorder struct{}

func (NopRecorder) RunStarted()                                 {}
func (NopRecorder) RunFinished(string)                          {}
func (NopRecorder) StageFinished(string, string, time.Duration) {}
func (NopRecorder) TokenEmitted(string)                         {}

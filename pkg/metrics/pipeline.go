package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records step-level outcomes for mutation pipelines.
type PipelineMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_step_duration_seconds",
		Help:    "Duration of pipeline steps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_step_outcomes",
		Help: "Pipeline step completions by outcome.",
	}, []string{"step", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &PipelineMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// ObserveStep records the duration and outcome for the named step.
func (p *PipelineMetrics) ObserveStep(step string, outcome string, duration time.Duration) {
	if p == nil {
		return
	}
	if p.duration != nil {
		p.duration.WithLabelValues(normalizeLabel(step)).Observe(duration.Seconds())
	}
	if p.outcomes != nil {
		p.outcomes.WithLabelValues(normalizeLabel(step), normalizeLabel(outcome)).Inc()
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// Package metrics provides Prometheus-based recording for pipeline runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker state gauge values.
const (
	CircuitClosed   = 0
	CircuitOpen     = 1
	CircuitHalfOpen = 2
)

// Recorder holds the pipeline's Prometheus collectors. A process registers
// exactly one Recorder; collectors are registered on construction.
type Recorder struct {
	stageTotal     *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	retriesTotal   *prometheus.CounterVec
	circuitState   *prometheus.GaugeVec
	poolActive     prometheus.Gauge
	providerTotal  *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
}

// NewRecorder registers the pipeline collectors on the default registry.
func NewRecorder() *Recorder {
	return &Recorder{
		stageTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_stage_total",
				Help: "Stage executions by stage type and outcome",
			},
			[]string{"stage", "status"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Stage execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		retriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_retries_total",
				Help: "Retry attempts by stage type",
			},
			[]string{"stage"},
		),
		circuitState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipeline_circuit_state",
				Help: "Circuit breaker state per stage type (0 closed, 1 open, 2 half-open)",
			},
			[]string{"stage"},
		),
		poolActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_pool_active",
				Help: "Pipeline runs currently executing on the worker pool",
			},
		),
		providerTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_requests_total",
				Help: "Provider invocations by provider id and outcome",
			},
			[]string{"provider", "status"},
		),
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Completed pipeline runs by outcome",
			},
			[]string{"status"},
		),
	}
}

// ObserveStage records one stage execution outcome and its duration.
func (r *Recorder) ObserveStage(stage string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.stageTotal.WithLabelValues(stage, status).Inc()
	r.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRetry counts one retry attempt for a stage.
func (r *Recorder) ObserveRetry(stage string) {
	r.retriesTotal.WithLabelValues(stage).Inc()
}

// SetCircuitState publishes a breaker state transition.
func (r *Recorder) SetCircuitState(stage string, state int) {
	r.circuitState.WithLabelValues(stage).Set(float64(state))
}

// SetPoolActive publishes the live worker pool occupancy.
func (r *Recorder) SetPoolActive(active int) {
	r.poolActive.Set(float64(active))
}

// ObserveProvider counts one provider invocation outcome.
func (r *Recorder) ObserveProvider(provider string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	r.providerTotal.WithLabelValues(provider, status).Inc()
}

// ObserveRun counts one completed run.
func (r *Recorder) ObserveRun(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	r.runsTotal.WithLabelValues(status).Inc()
}

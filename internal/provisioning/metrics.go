package provisioning

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects run metrics on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	phaseDuration    *prometheus.HistogramVec
	resourcesCreated *prometheus.CounterVec
	rollbackTotal    *prometheus.CounterVec
	runsTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers the run metrics. environment is attached
// as a constant label.
func NewMetrics(environment string) *Metrics {
	constLabels := prometheus.Labels{"environment": environment}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   "tradefleet",
				Subsystem:   "deploy",
				Name:        "phase_duration_seconds",
				Help:        "Duration of deployment phases in seconds",
				Buckets:     prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
				ConstLabels: constLabels,
			},
			[]string{"phase", "result"},
		),
		resourcesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "tradefleet",
				Subsystem:   "deploy",
				Name:        "resources_recorded_total",
				Help:        "Resources recorded in deployment state by kind",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		rollbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "tradefleet",
				Subsystem:   "rollback",
				Name:        "resources_total",
				Help:        "Rollback outcomes per resource record",
				ConstLabels: constLabels,
			},
			[]string{"kind", "outcome"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "tradefleet",
				Subsystem:   "deploy",
				Name:        "runs_total",
				Help:        "Deployment runs by result",
				ConstLabels: constLabels,
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(m.phaseDuration, m.resourcesCreated, m.rollbackTotal, m.runsTotal)
	return m
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObservePhase records a phase duration.
func (m *Metrics) ObservePhase(phase string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase, resultLabel(err)).Observe(d.Seconds())
}

// ResourceRecorded counts a resource appended to state.
func (m *Metrics) ResourceRecorded(kind ResourceKind) {
	if m == nil {
		return
	}
	m.resourcesCreated.WithLabelValues(string(kind)).Inc()
}

// RollbackOutcome counts one rollback decision ("destroyed", "skipped", "failed").
func (m *Metrics) RollbackOutcome(kind ResourceKind, outcome string) {
	if m == nil {
		return
	}
	m.rollbackTotal.WithLabelValues(string(kind), outcome).Inc()
}

// RunFinished counts a finished run by result ("success", "failure", "dry_run").
func (m *Metrics) RunFinished(result string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(result).Inc()
}

// WriteTextfile writes all metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

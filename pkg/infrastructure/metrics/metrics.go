// Package metrics exposes Prometheus instruments for the equipment workflow.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the workflow instruments
type Metrics struct {
	WorkflowOperations *prometheus.CounterVec
	WorkflowDuration   *prometheus.HistogramVec
	Discrepancies      prometheus.Counter
	SnapshotRows       prometheus.Gauge
}

// NewMetrics registers every instrument on registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		WorkflowOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldflow_workflow_operations_total",
				Help: "Total number of workflow operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		WorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fieldflow_workflow_operation_duration_seconds",
				Help:    "Workflow operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Discrepancies: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fieldflow_equipment_discrepancies_total",
				Help: "Total number of receiving discrepancies logged",
			},
		),
		SnapshotRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fieldflow_snapshot_rows",
				Help: "Number of site equipment snapshot rows after the last rebuild",
			},
		),
	}
}

// NewNop returns metrics registered on a private registry
func NewNop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// ObserveOperation records one workflow operation
func (m *Metrics) ObserveOperation(operation string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.WorkflowOperations.WithLabelValues(operation, outcome).Inc()
	m.WorkflowDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

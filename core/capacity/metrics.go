package capacity

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	validationsTotal     *prometheus.CounterVec
	projectedUtilization *prometheus.GaugeVec
	bulkProcessed        *prometheus.CounterVec
	bulkDuration         prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.GaugeVec, *prometheus.CounterVec, prometheus.Histogram) {
	val := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capacity_validations_total",
			Help: "Number of assignment validations by outcome",
		},
		[]string{"outcome"},
	)
	util := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "therapist_projected_utilization_percent",
			Help: "Projected utilization from the latest validation per therapist",
		},
		[]string{"therapist_id"},
	)
	bulk := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_assignments_total",
			Help: "Bulk assignment items by result",
		},
		[]string{"result"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bulk_batch_duration_seconds",
			Help:    "Wall-clock duration of bulk assignment batches",
			Buckets: prometheus.DefBuckets,
		},
	)
	return val, util, bulk, dur
}

func init() {
	validationsTotal, projectedUtilization, bulkProcessed, bulkDuration = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers capacity metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(validationsTotal, projectedUtilization, bulkProcessed, bulkDuration)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	validationsTotal, projectedUtilization, bulkProcessed, bulkDuration = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

package metrics

import (
	coremetrics "github.com/Alnumo/therapy-engine/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records capacity alerts and sweep summaries in Prometheus
// metrics.
type PromSink struct {
	alerts *prometheus.CounterVec
	mean   prometheus.Gauge
	stddev prometheus.Gauge
	fleet  prometheus.Gauge
}

// NewPromSink registers engine metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "capacity_alerts_total",
		Help: "Capacity alerts raised per therapist and severity",
	}, []string{"therapist_id", "severity"})
	mean := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_mean_utilization_percent",
		Help: "Mean therapist utilization from the latest sweep",
	})
	stddev := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_utilization_stddev",
		Help: "Utilization standard deviation from the latest sweep",
	})
	fleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fleet_therapists_total",
		Help: "Number of active therapists seen by the latest sweep",
	})

	for _, c := range []prometheus.Collector{alerts, mean, stddev, fleet} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{alerts: alerts, mean: mean, stddev: stddev, fleet: fleet}, nil
}

// RecordAlerts increments the alert counter for each alert.
func (s *PromSink) RecordAlerts(alerts []coremetrics.AlertEvent) error {
	for _, a := range alerts {
		s.alerts.WithLabelValues(a.TherapistID, a.Severity).Inc()
	}
	return nil
}

// RecordSweep sets the fleet-level gauges.
func (s *PromSink) RecordSweep(sum coremetrics.SweepSummary) error {
	s.mean.Set(sum.MeanUtilization)
	s.stddev.Set(sum.StdDevUtilization)
	s.fleet.Set(float64(sum.Therapists))
	return nil
}

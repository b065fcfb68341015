// Package metrics defines the observability sink interfaces the engine
// records into. Concrete sinks (Prometheus, InfluxDB) live under
// infra/metrics.
package metrics

import "time"

// AlertEvent is one capacity alert to be recorded.
type AlertEvent struct {
	TherapistID string
	Severity    string
	Utilization float64
	Time        time.Time
}

// SweepSummary aggregates one monitor sweep over the whole fleet of
// therapists.
type SweepSummary struct {
	Therapists        int
	Alerts            int
	MeanUtilization   float64
	StdDevUtilization float64
	Time              time.Time
}

// MetricsSink records capacity alerts for observability purposes.
type MetricsSink interface {
	RecordAlerts(alerts []AlertEvent) error
}

// SweepRecorder records sweep summaries. Sinks may optionally implement it.
type SweepRecorder interface {
	RecordSweep(s SweepSummary) error
}

// NopSink discards all metrics.
type NopSink struct{}

func (NopSink) RecordAlerts([]AlertEvent) error { return nil }
func (NopSink) RecordSweep(SweepSummary) error  { return nil }

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

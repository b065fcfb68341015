package metrics

import coremetrics "github.com/Alnumo/therapy-engine/core/metrics"

// MultiSink fanouts alert records to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAlerts forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordAlerts(alerts []coremetrics.AlertEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAlerts(alerts); err != nil {
			return err
		}
	}
	return nil
}

// RecordSweep forwards sweep summaries to sinks that support them.
func (m *MultiSink) RecordSweep(sum coremetrics.SweepSummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.SweepRecorder); ok {
			if err := rec.RecordSweep(sum); err != nil {
				return err
			}
		}
	}
	return nil
}

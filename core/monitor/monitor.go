// Package monitor periodically sweeps all active therapists and raises
// capacity alerts for those running close to their limits.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/metrics"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/store"
	"github.com/Alnumo/therapy-engine/core/workload"
	"github.com/Alnumo/therapy-engine/internal/eventbus"
)

// Config tunes alert thresholds and the sweep cadence.
type Config struct {
	CriticalThreshold float64 `json:"critical_threshold"`
	HighThreshold     float64 `json:"high_threshold"`
	IntervalMinutes   int     `json:"interval_minutes"`
}

// SetDefaults fills unset fields with sensible values.
func (c *Config) SetDefaults() {
	if c.CriticalThreshold <= 0 {
		c.CriticalThreshold = 95
	}
	if c.HighThreshold <= 0 {
		c.HighThreshold = 85
	}
	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 30
	}
}

// Alert flags one therapist exceeding a capacity threshold.
type Alert struct {
	TherapistID   string
	TherapistName string
	Severity      model.RiskLevel
	Utilization   float64
	WeeklyHours   float64
	MaxHours      float64
	RaisedAt      time.Time
	Message       model.BilingualText
}

// SweepResult is the outcome of one full sweep, including fleet-level
// utilization statistics.
type SweepResult struct {
	Alerts          []Alert
	Therapists      int
	MeanUtilization float64
	StdDev          float64
	SweptAt         time.Time
}

// Monitor sweeps therapists and emits alerts.
type Monitor struct {
	calc       *workload.Calculator
	therapists store.TherapistStore
	cfg        Config
	sink       metrics.MetricsSink
	bus        eventbus.EventBus
	log        logger.Logger
	now        func() time.Time
}

// NewMonitor creates a Monitor. sink and bus may be nil.
func NewMonitor(calc *workload.Calculator, therapists store.TherapistStore, cfg Config, sink metrics.MetricsSink, bus eventbus.EventBus, log logger.Logger) *Monitor {
	cfg.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Monitor{calc: calc, therapists: therapists, cfg: cfg, sink: sink, bus: bus, log: log, now: time.Now}
}

// Sweep computes every active therapist's workload and returns the alerts.
// A therapist fetch failure aborts the sweep: a partial alert list would
// look misleadingly healthy.
func (m *Monitor) Sweep(ctx context.Context) (SweepResult, error) {
	therapists, err := m.therapists.ActiveTherapists(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("monitor sweep: %w", err)
	}

	now := m.now()
	res := SweepResult{Therapists: len(therapists), SweptAt: now}
	utils := make([]float64, 0, len(therapists))
	for _, th := range therapists {
		w, err := m.calc.Compute(ctx, th.ID, now)
		if err != nil {
			return SweepResult{}, fmt.Errorf("monitor sweep: %w", err)
		}
		utils = append(utils, w.UtilizationPercent)
		if alert, ok := m.evaluate(th, w, now); ok {
			res.Alerts = append(res.Alerts, alert)
		}
	}

	if len(utils) > 0 {
		res.MeanUtilization = stat.Mean(utils, nil)
		if len(utils) > 1 {
			res.StdDev = stat.StdDev(utils, nil)
		}
	}

	sort.SliceStable(res.Alerts, func(i, j int) bool {
		if res.Alerts[i].Severity != res.Alerts[j].Severity {
			return res.Alerts[i].Severity > res.Alerts[j].Severity
		}
		return res.Alerts[i].RaisedAt.After(res.Alerts[j].RaisedAt)
	})

	m.record(res)
	return res, nil
}

func (m *Monitor) evaluate(th model.Therapist, w model.Workload, now time.Time) (Alert, bool) {
	var severity model.RiskLevel
	switch {
	case w.UtilizationPercent >= m.cfg.CriticalThreshold:
		severity = model.RiskCritical
	case w.UtilizationPercent >= m.cfg.HighThreshold:
		severity = model.RiskHigh
	default:
		return Alert{}, false
	}
	return Alert{
		TherapistID:   th.ID,
		TherapistName: th.Name,
		Severity:      severity,
		Utilization:   w.UtilizationPercent,
		WeeklyHours:   w.WeeklyHours,
		MaxHours:      th.Capacity.MaxWeeklyHours,
		RaisedAt:      now,
		Message: model.BilingualText{
			En: fmt.Sprintf("therapist %s is at %.0f%% of weekly capacity (%.1f/%.1f hours)", th.Name, w.UtilizationPercent, w.WeeklyHours, th.Capacity.MaxWeeklyHours),
			Ar: fmt.Sprintf("وصل المعالج %s إلى %.0f%% من السعة الأسبوعية (%.1f/%.1f ساعة)", th.NameAr, w.UtilizationPercent, w.WeeklyHours, th.Capacity.MaxWeeklyHours),
		},
	}, true
}

func (m *Monitor) record(res SweepResult) {
	if len(res.Alerts) > 0 {
		events := make([]metrics.AlertEvent, 0, len(res.Alerts))
		for _, a := range res.Alerts {
			events = append(events, metrics.AlertEvent{
				TherapistID: a.TherapistID,
				Severity:    a.Severity.String(),
				Utilization: a.Utilization,
				Time:        a.RaisedAt,
			})
			if m.bus != nil {
				m.bus.Publish(eventbus.AlertEvent{
					TherapistID: a.TherapistID,
					Severity:    a.Severity.String(),
					Utilization: a.Utilization,
					Time:        a.RaisedAt,
				})
			}
		}
		if err := m.sink.RecordAlerts(events); err != nil {
			m.log.Errorf("alert metrics error: %v", err)
		}
	}
	if sr, ok := m.sink.(metrics.SweepRecorder); ok {
		err := sr.RecordSweep(metrics.SweepSummary{
			Therapists:        res.Therapists,
			Alerts:            len(res.Alerts),
			MeanUtilization:   res.MeanUtilization,
			StdDevUtilization: res.StdDev,
			Time:              res.SweptAt,
		})
		if err != nil {
			m.log.Errorf("sweep metrics error: %v", err)
		}
	}
}

// Run sweeps on the configured interval until the context is canceled.
func (m *Monitor) Run(ctx context.Context) {
	interval := time.Duration(m.cfg.IntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if res, err := m.Sweep(ctx); err != nil {
				m.log.Errorf("sweep failed: %v", err)
			} else {
				m.log.Infof("sweep done: %d therapists, %d alerts, mean utilization %.1f%%",
					res.Therapists, len(res.Alerts), res.MeanUtilization)
			}
		case <-ctx.Done():
			return
		}
	}
}

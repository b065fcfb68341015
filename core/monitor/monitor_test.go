package monitor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Alnumo/therapy-engine/core/metrics"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/workload"
	"github.com/Alnumo/therapy-engine/infra/logger"
	"github.com/Alnumo/therapy-engine/infra/store"
	"github.com/Alnumo/therapy-engine/internal/eventbus"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// recordingSink captures everything the monitor reports.
type recordingSink struct {
	alerts []metrics.AlertEvent
	sweeps []metrics.SweepSummary
}

func (s *recordingSink) RecordAlerts(events []metrics.AlertEvent) error {
	s.alerts = append(s.alerts, events...)
	return nil
}

func (s *recordingSink) RecordSweep(sum metrics.SweepSummary) error {
	s.sweeps = append(s.sweeps, sum)
	return nil
}

func newTestMonitor(st *store.MemStore, sink metrics.MetricsSink, bus eventbus.EventBus) *Monitor {
	calc := workload.NewCalculator(st, st, st, workload.Config{}, logger.NopLogger{})
	m := NewMonitor(calc, st, Config{}, sink, bus, logger.NopLogger{})
	m.now = func() time.Time { return monday.Add(9 * time.Hour) }
	return m
}

// seedTherapist adds an active therapist with a 40-hour weekly cap and the
// given scheduled minutes this week, spread over five weekdays.
func seedTherapist(st *store.MemStore, id, name, nameAr string, weeklyMinutes int) {
	st.AddTherapist(model.Therapist{
		ID: id, Name: name, NameAr: nameAr, Active: true,
		Capacity: model.CapacityConfig{MaxWeeklyHours: 40},
	})
	perDay := weeklyMinutes / 5
	for day := 0; day < 5; day++ {
		start := monday.AddDate(0, 0, day).Add(9 * time.Hour)
		st.AddSession(model.ScheduledSession{
			ID:          fmt.Sprintf("%s-d%d", id, day),
			TherapistID: id,
			StudentID:   "stu-" + id,
			Start:       start,
			End:         start.Add(time.Duration(perDay) * time.Minute),
			Status:      model.SessionScheduled,
		})
	}
}

func TestSweep_RaisesAlertsAtThresholds(t *testing.T) {
	st := store.NewMemStore()
	seedTherapist(st, "t-calm", "Calm", "هادئ", 1200)
	seedTherapist(st, "t-high", "High", "مرتفع", 2100)
	seedTherapist(st, "t-crit", "Crit", "حرج", 2340)

	m := newTestMonitor(st, nil, nil)
	res, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Therapists != 3 {
		t.Errorf("therapists = %d, want 3", res.Therapists)
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts = %+v", res.Alerts)
	}
	// Critical first, then high. The 50% therapist raises nothing.
	if res.Alerts[0].TherapistID != "t-crit" || res.Alerts[0].Severity != model.RiskCritical {
		t.Errorf("first alert = %+v", res.Alerts[0])
	}
	if res.Alerts[1].TherapistID != "t-high" || res.Alerts[1].Severity != model.RiskHigh {
		t.Errorf("second alert = %+v", res.Alerts[1])
	}
	if res.Alerts[0].WeeklyHours != 39 || res.Alerts[0].MaxHours != 40 {
		t.Errorf("critical hours = %.1f/%.1f", res.Alerts[0].WeeklyHours, res.Alerts[0].MaxHours)
	}
}

func TestSweep_ThresholdBoundariesInclusive(t *testing.T) {
	st := store.NewMemStore()
	seedTherapist(st, "t-85", "AtHigh", "", 2040)
	seedTherapist(st, "t-95", "AtCritical", "", 2280)

	m := newTestMonitor(st, nil, nil)
	res, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("alerts = %+v", res.Alerts)
	}
	if res.Alerts[0].Severity != model.RiskCritical || res.Alerts[1].Severity != model.RiskHigh {
		t.Errorf("severities = %s, %s", res.Alerts[0].Severity, res.Alerts[1].Severity)
	}
}

func TestSweep_FleetStatistics(t *testing.T) {
	st := store.NewMemStore()
	seedTherapist(st, "t1", "A", "", 960)
	seedTherapist(st, "t2", "B", "", 1440)

	m := newTestMonitor(st, nil, nil)
	res, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if math.Abs(res.MeanUtilization-50) > 1e-9 {
		t.Errorf("mean = %v, want 50", res.MeanUtilization)
	}
	// Sample standard deviation of {40, 60}.
	if math.Abs(res.StdDev-math.Sqrt(200)) > 1e-9 {
		t.Errorf("stddev = %v", res.StdDev)
	}
}

func TestSweep_BilingualMessages(t *testing.T) {
	st := store.NewMemStore()
	seedTherapist(st, "t1", "Sara", "سارة", 2340)

	m := newTestMonitor(st, nil, nil)
	res, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(res.Alerts) != 1 {
		t.Fatalf("alerts = %+v", res.Alerts)
	}
	msg := res.Alerts[0].Message
	if !strings.Contains(msg.En, "Sara") || !strings.Contains(msg.En, "98%") {
		t.Errorf("en message = %q", msg.En)
	}
	if !strings.Contains(msg.Ar, "سارة") {
		t.Errorf("ar message = %q", msg.Ar)
	}
}

func TestSweep_RecordsToSinkAndBus(t *testing.T) {
	st := store.NewMemStore()
	seedTherapist(st, "t1", "A", "", 2340)
	seedTherapist(st, "t2", "B", "", 720)

	sink := &recordingSink{}
	bus := eventbus.New()
	ch := bus.Subscribe()

	m := newTestMonitor(st, sink, bus)
	res, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(sink.alerts) != 1 || sink.alerts[0].TherapistID != "t1" || sink.alerts[0].Severity != "critical" {
		t.Errorf("sink alerts = %+v", sink.alerts)
	}
	if len(sink.sweeps) != 1 {
		t.Fatalf("sink sweeps = %+v", sink.sweeps)
	}
	sum := sink.sweeps[0]
	if sum.Therapists != 2 || sum.Alerts != 1 || !sum.Time.Equal(res.SweptAt) {
		t.Errorf("sweep summary = %+v", sum)
	}

	select {
	case ev := <-ch:
		alert, ok := ev.(eventbus.AlertEvent)
		if !ok || alert.TherapistID != "t1" {
			t.Errorf("bus event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no alert event published")
	}
}

func TestSweep_EmptyFleet(t *testing.T) {
	st := store.NewMemStore()
	sink := &recordingSink{}
	m := newTestMonitor(st, sink, nil)

	res, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Therapists != 0 || len(res.Alerts) != 0 || res.MeanUtilization != 0 {
		t.Errorf("result = %+v", res)
	}
	// The sweep summary is still recorded so dashboards see the heartbeat.
	if len(sink.sweeps) != 1 {
		t.Errorf("sweeps = %+v", sink.sweeps)
	}
}

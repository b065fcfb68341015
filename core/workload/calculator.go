// Package workload computes therapist utilization from persisted sessions
// and enrollments. The calculator is stateless: every call re-reads the
// store so capacity decisions never act on stale numbers.
package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/Alnumo/therapy-engine/core/logger"
	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/store"
)

// DataUnavailableError reports that a required store read failed. Callers
// must treat it as "unknown workload" and stop, never as zero workload.
type DataUnavailableError struct {
	TherapistID string
	Err         error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("workload data unavailable for therapist %s: %v", e.TherapistID, e.Err)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// Config tunes derived-hours accounting.
type Config struct {
	DocumentationMinutesPerSession int `json:"documentation_minutes_per_session"`
	WorkingDaysPerWeek             int `json:"working_days_per_week"`
}

// SetDefaults fills unset fields with sensible values.
func (c *Config) SetDefaults() {
	if c.DocumentationMinutesPerSession <= 0 {
		c.DocumentationMinutesPerSession = 15
	}
	if c.WorkingDaysPerWeek <= 0 {
		c.WorkingDaysPerWeek = 5
	}
}

// Calculator derives Workload snapshots for therapists.
type Calculator struct {
	therapists  store.TherapistStore
	enrollments store.EnrollmentStore
	sessions    store.SessionStore
	cfg         Config
	log         logger.Logger
}

// NewCalculator creates a Calculator reading from the given stores.
func NewCalculator(t store.TherapistStore, e store.EnrollmentStore, s store.SessionStore, cfg Config, log logger.Logger) *Calculator {
	cfg.SetDefaults()
	return &Calculator{therapists: t, enrollments: e, sessions: s, cfg: cfg, log: log}
}

// WeekWindow returns the Monday 00:00 start and the exclusive end of the
// week containing t.
func WeekWindow(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday-based
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// Compute aggregates the therapist's counted sessions and active
// enrollments within the week containing asOf. A zero asOf means now.
func (c *Calculator) Compute(ctx context.Context, therapistID string, asOf time.Time) (model.Workload, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}
	th, err := c.therapists.Therapist(ctx, therapistID)
	if err != nil {
		return model.Workload{}, &DataUnavailableError{TherapistID: therapistID, Err: err}
	}

	weekStart, weekEnd := WeekWindow(asOf)
	sessions, err := c.sessions.Sessions(ctx, store.SessionQuery{
		TherapistID: therapistID,
		From:        weekStart,
		To:          weekEnd,
	})
	if err != nil {
		return model.Workload{}, &DataUnavailableError{TherapistID: therapistID, Err: err}
	}
	enrollments, err := c.enrollments.EnrollmentsByTherapist(ctx, therapistID, model.EnrollmentActive)
	if err != nil {
		return model.Workload{}, &DataUnavailableError{TherapistID: therapistID, Err: err}
	}

	var sessionMinutes, travelMinutes float64
	counted := 0
	for _, s := range sessions {
		if !s.Counted() {
			continue
		}
		counted++
		sessionMinutes += s.DurationMinutes()
		travelMinutes += float64(s.TravelMinutes)
	}

	students := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		students[e.StudentID] = struct{}{}
	}

	w := model.Workload{
		TherapistID:        therapistID,
		WeeklyHours:        sessionMinutes / 60.0,
		SessionsPerWeek:    counted,
		ActiveStudents:     len(students),
		DocumentationHours: float64(counted*c.cfg.DocumentationMinutesPerSession) / 60.0,
		TravelTimeHours:    travelMinutes / 60.0,
	}
	w.DailyHoursAvg = w.WeeklyHours / float64(c.cfg.WorkingDaysPerWeek)
	if th.Capacity.MaxWeeklyHours > 0 {
		w.UtilizationPercent = w.WeeklyHours / th.Capacity.MaxWeeklyHours * 100.0
	}
	c.log.Debugw("workload computed", map[string]any{
		"therapist":   therapistID,
		"weekly_h":    w.WeeklyHours,
		"students":    w.ActiveStudents,
		"utilization": w.UtilizationPercent,
	})
	return w, nil
}

// StudentUtilization returns the student-count utilization percentage for
// the given workload under cfg. Zero when no student limit is configured.
func StudentUtilization(w model.Workload, cfg model.CapacityConfig) float64 {
	if cfg.MaxConcurrentStudents <= 0 {
		return 0
	}
	return float64(w.ActiveStudents) / float64(cfg.MaxConcurrentStudents) * 100.0
}

package workload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Alnumo/therapy-engine/core/model"
	corestore "github.com/Alnumo/therapy-engine/core/store"
	"github.com/Alnumo/therapy-engine/infra/logger"
	"github.com/Alnumo/therapy-engine/infra/store"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday

func seedTherapist(st *store.MemStore, id string, maxWeekly float64) {
	st.AddTherapist(model.Therapist{
		ID:     id,
		Name:   id,
		Active: true,
		Capacity: model.CapacityConfig{
			MaxWeeklyHours: maxWeekly,
		},
	})
}

func seedSession(st *store.MemStore, id, therapist, student string, start time.Time, minutes int, status model.SessionStatus) {
	st.AddSession(model.ScheduledSession{
		ID:          id,
		TherapistID: therapist,
		StudentID:   student,
		Start:       start,
		End:         start.Add(time.Duration(minutes) * time.Minute),
		Status:      status,
	})
}

func TestWeekWindow_MondayBased(t *testing.T) {
	// Wednesday inside the week starting Monday 2026-03-02.
	wed := monday.AddDate(0, 0, 2).Add(15 * time.Hour)
	start, end := WeekWindow(wed)
	if !start.Equal(monday) {
		t.Fatalf("week start = %v, want %v", start, monday)
	}
	if !end.Equal(monday.AddDate(0, 0, 7)) {
		t.Fatalf("week end = %v, want %v", end, monday.AddDate(0, 0, 7))
	}
	// Sunday belongs to the week that started six days earlier.
	sun := monday.AddDate(0, 0, 6)
	start, _ = WeekWindow(sun)
	if !start.Equal(monday) {
		t.Fatalf("sunday week start = %v, want %v", start, monday)
	}
}

func TestCompute_AggregatesWeek(t *testing.T) {
	st := store.NewMemStore()
	seedTherapist(st, "t1", 40)
	// Two countable sessions this week, one cancelled, one next week.
	seedSession(st, "s1", "t1", "stu1", monday.Add(9*time.Hour), 60, model.SessionScheduled)
	seedSession(st, "s2", "t1", "stu2", monday.Add(26*time.Hour), 90, model.SessionCompleted)
	seedSession(st, "s3", "t1", "stu1", monday.Add(30*time.Hour), 60, model.SessionCancelled)
	seedSession(st, "s4", "t1", "stu1", monday.AddDate(0, 0, 8), 60, model.SessionScheduled)
	st.AddEnrollment(model.Enrollment{ID: "e1", StudentID: "stu1", TherapistID: "t1", Status: model.EnrollmentActive})
	st.AddEnrollment(model.Enrollment{ID: "e2", StudentID: "stu2", TherapistID: "t1", Status: model.EnrollmentActive})
	st.AddEnrollment(model.Enrollment{ID: "e3", StudentID: "stu2", TherapistID: "t1", Status: model.EnrollmentActive})
	st.AddEnrollment(model.Enrollment{ID: "e4", StudentID: "stu3", TherapistID: "t1", Status: model.EnrollmentEnded})

	calc := NewCalculator(st, st, st, Config{}, logger.NopLogger{})
	w, err := calc.Compute(context.Background(), "t1", monday.Add(time.Hour))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if w.WeeklyHours != 2.5 {
		t.Errorf("weekly hours = %v, want 2.5", w.WeeklyHours)
	}
	if w.SessionsPerWeek != 2 {
		t.Errorf("sessions = %d, want 2", w.SessionsPerWeek)
	}
	// Enrollments collapse to distinct students; ended ones don't count.
	if w.ActiveStudents != 2 {
		t.Errorf("active students = %d, want 2", w.ActiveStudents)
	}
	if w.UtilizationPercent != 2.5/40*100 {
		t.Errorf("utilization = %v", w.UtilizationPercent)
	}
	// 15 documentation minutes per session by default.
	if w.DocumentationHours != 0.5 {
		t.Errorf("documentation hours = %v, want 0.5", w.DocumentationHours)
	}
}

// A session starting exactly at next Monday 00:00 belongs to next week only:
// counting it in both weeks would double its hours at the boundary.
func TestCompute_WeekBoundaryCountsOnce(t *testing.T) {
	st := store.NewMemStore()
	seedTherapist(st, "t1", 40)
	seedSession(st, "s1", "t1", "stu1", monday.Add(9*time.Hour), 60, model.SessionScheduled)
	seedSession(st, "s2", "t1", "stu1", monday.AddDate(0, 0, 7), 60, model.SessionScheduled)

	calc := NewCalculator(st, st, st, Config{}, logger.NopLogger{})
	w, err := calc.Compute(context.Background(), "t1", monday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if w.WeeklyHours != 1 || w.SessionsPerWeek != 1 {
		t.Errorf("this week: hours=%v sessions=%d, want 1 and 1", w.WeeklyHours, w.SessionsPerWeek)
	}
	next, err := calc.Compute(context.Background(), "t1", monday.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("compute next week: %v", err)
	}
	if next.WeeklyHours != 1 || next.SessionsPerWeek != 1 {
		t.Errorf("next week: hours=%v sessions=%d, want 1 and 1", next.WeeklyHours, next.SessionsPerWeek)
	}
}

func TestCompute_UnknownTherapistIsDataUnavailable(t *testing.T) {
	st := store.NewMemStore()
	calc := NewCalculator(st, st, st, Config{}, logger.NopLogger{})
	_, err := calc.Compute(context.Background(), "ghost", monday)
	if err == nil {
		t.Fatal("expected error for unknown therapist")
	}
	var dua *DataUnavailableError
	if !errors.As(err, &dua) {
		t.Fatalf("error type = %T, want DataUnavailableError", err)
	}
	if !errors.Is(err, corestore.ErrNotFound) {
		t.Errorf("expected ErrNotFound in chain, got %v", err)
	}
}

func TestCompute_ZeroLimitMeansZeroUtilization(t *testing.T) {
	st := store.NewMemStore()
	seedTherapist(st, "t1", 0)
	seedSession(st, "s1", "t1", "stu1", monday.Add(9*time.Hour), 60, model.SessionScheduled)

	calc := NewCalculator(st, st, st, Config{}, logger.NopLogger{})
	w, err := calc.Compute(context.Background(), "t1", monday)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if w.UtilizationPercent != 0 {
		t.Errorf("utilization = %v, want 0 when no weekly limit", w.UtilizationPercent)
	}
}

func TestStudentUtilization(t *testing.T) {
	w := model.Workload{ActiveStudents: 9}
	cfg := model.CapacityConfig{MaxConcurrentStudents: 12}
	if got := StudentUtilization(w, cfg); got != 75 {
		t.Errorf("student utilization = %v, want 75", got)
	}
	if got := StudentUtilization(w, model.CapacityConfig{}); got != 0 {
		t.Errorf("student utilization without limit = %v, want 0", got)
	}
}

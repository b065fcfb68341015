package model

import (
	"time"
)

// Therapist represents a clinic therapist eligible to receive student
// assignments and substitution work.
type Therapist struct {
	ID          string
	Name        string
	NameAr      string
	Specialties []string
	Capacity    CapacityConfig
	// SubstituteEligible marks therapists that may be selected as
	// substitutes during absences.
	SubstituteEligible bool
	Active             bool
}

// CapacityConfig holds the configured workload limits for a therapist.
// Values left at zero are treated as "no limit" except MaxWeeklyHours,
// which must be positive for utilization to be meaningful.
type CapacityConfig struct {
	MaxWeeklyHours        float64
	MaxDailyHours         float64
	MaxMonthlyHours       float64
	MaxConcurrentStudents int
	MaxSessionsPerDay     int
	RequiredBreakMinutes  int
	MaxConsecutiveHours   float64
	RequiredSpecialties   []string
	Availability          []AvailabilityWindow
}

// AvailabilityWindow is a recurring weekly period during which the
// therapist accepts sessions. Times are clock strings ("09:00").
type AvailabilityWindow struct {
	Weekday time.Weekday `json:"weekday"`
	Start   string       `json:"start"`
	End     string       `json:"end"`
}

// HasSpecialty reports whether the therapist carries the given specialty.
func (t Therapist) HasSpecialty(s string) bool {
	for _, sp := range t.Specialties {
		if sp == s {
			return true
		}
	}
	return false
}

// SpecialtyOverlap returns the number of specialties shared with the given
// set.
func (t Therapist) SpecialtyOverlap(specialties []string) int {
	n := 0
	for _, s := range specialties {
		if t.HasSpecialty(s) {
			n++
		}
	}
	return n
}

// AvailableOn reports whether the therapist has an availability window on
// the given weekday. Therapists with no configured windows are treated as
// always available.
func (t Therapist) AvailableOn(day time.Weekday) bool {
	if len(t.Capacity.Availability) == 0 {
		return true
	}
	for _, w := range t.Capacity.Availability {
		if w.Weekday == day {
			return true
		}
	}
	return false
}

// Workload is the derived utilization snapshot for a therapist. It is
// recomputed from persisted sessions and enrollments on every call and never
// cached across operations.
type Workload struct {
	TherapistID        string
	WeeklyHours        float64
	DailyHoursAvg      float64
	ActiveStudents     int
	SessionsPerWeek    int
	UtilizationPercent float64
	DocumentationHours float64
	TravelTimeHours    float64
}

// RemainingWeeklyHours returns the headroom left under the configured weekly
// maximum. Negative values mean the therapist is already over capacity.
func (w Workload) RemainingWeeklyHours(cfg CapacityConfig) float64 {
	return cfg.MaxWeeklyHours - w.WeeklyHours
}

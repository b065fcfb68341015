package model

import "time"

// EnrollmentStatus defines the lifecycle state of an enrollment.
type EnrollmentStatus int

const (
	EnrollmentActive EnrollmentStatus = iota
	EnrollmentPaused
	EnrollmentEnded
)

// String returns a human-readable representation of the enrollment status.
func (s EnrollmentStatus) String() string {
	switch s {
	case EnrollmentActive:
		return "active"
	case EnrollmentPaused:
		return "paused"
	case EnrollmentEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Enrollment links a student to a program template and optionally an
// assigned therapist. TherapistID is empty while unassigned.
type Enrollment struct {
	ID               string
	StudentID        string
	ProgramID        string
	TherapistID      string
	FrequencyPerWeek int
	DurationMinutes  int
	StartDate        time.Time
	EndDate          time.Time
	Status           EnrollmentStatus
}

// Assigned reports whether a therapist is currently assigned.
func (e Enrollment) Assigned() bool { return e.TherapistID != "" }

// WeeklyHours returns the scheduled therapy hours per week implied by the
// enrollment's frequency and session duration.
func (e Enrollment) WeeklyHours() float64 {
	return float64(e.FrequencyPerWeek) * float64(e.DurationMinutes) / 60.0
}

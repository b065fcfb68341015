package model

import "time"

// Priority orders requests and notifications. Higher values are processed
// first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// AssignmentRequest proposes assigning a student to a therapist. It is not
// persisted unless accepted.
type AssignmentRequest struct {
	TherapistID            string `json:"therapist_id"`
	StudentID              string `json:"student_id"`
	ProgramID              string `json:"program_id"`
	SessionsPerWeek        int    `json:"sessions_per_week"`
	SessionDurationMinutes int    `json:"session_duration_minutes"`
	// RequiredSpecialties lists specialties the program demands from the
	// assigned therapist. Empty means any therapist qualifies.
	RequiredSpecialties []string             `json:"required_specialties,omitempty"`
	PreferredSlots      []AvailabilityWindow `json:"preferred_slots,omitempty"`
	Priority            Priority             `json:"priority"`
}

// WeeklyHours returns the additional therapy hours per week the request
// would add to the therapist's load.
func (r AssignmentRequest) WeeklyHours() float64 {
	return float64(r.SessionsPerWeek) * float64(r.SessionDurationMinutes) / 60.0
}

// SubstitutionRequest asks for substitutes covering a therapist's sessions
// over a date range.
type SubstitutionRequest struct {
	TherapistID          string    `json:"therapist_id"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	Reason               string    `json:"reason,omitempty"`
	RequireSameSpecialty bool      `json:"require_same_specialty"`
	// AllowSplit permits covering the affected sessions with more than one
	// substitute.
	AllowSplit bool `json:"allow_split"`
}

// SubstitutionCandidate is a scored substitute therapist. All scores are on
// a 0-100 scale; a higher WorkloadImpact means more strain on the candidate.
type SubstitutionCandidate struct {
	TherapistID        string
	AvailabilityScore  float64
	CompatibilityScore float64
	WorkloadImpact     float64
	SpecialtiesMatch   bool
}

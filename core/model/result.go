package model

// BilingualText carries the Arabic and English renderings of a message. The
// engine only produces the two templates; translation beyond that is the
// presentation layer's concern.
type BilingualText struct {
	En string `json:"en"`
	Ar string `json:"ar"`
}

// Severity classifies validation errors. Critical blocks validity.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns a human-readable representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// RiskLevel classifies the capacity impact of a projected assignment.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

// String returns a human-readable representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Capacity limit dimensions referenced by validation errors.
const (
	DimWeeklyHours        = "max_weekly_hours"
	DimDailyHours         = "max_daily_hours"
	DimConcurrentStudents = "max_concurrent_students"
	DimSessionsPerDay     = "max_sessions_per_day"
	DimSpecialtyMatch     = "specialty_match"
	DimRequestShape       = "request_shape"
)

// ValidationError describes one violated or near-violated capacity rule.
type ValidationError struct {
	Dimension string        `json:"dimension"`
	Severity  Severity      `json:"severity"`
	Message   BilingualText `json:"message"`
	Current   float64       `json:"current"`
	Projected float64       `json:"projected"`
	Limit     float64       `json:"limit"`
}

// CapacityImpact is the before/after utilization snapshot attached to a
// validation result.
type CapacityImpact struct {
	CurrentUtilization    float64   `json:"current_utilization"`
	ProjectedUtilization  float64   `json:"projected_utilization"`
	RemainingWeeklyHours  float64   `json:"remaining_weekly_hours"`
	RemainingStudentSlots int       `json:"remaining_student_slots"`
	Risk                  RiskLevel `json:"risk"`
}

// AlternativeAssignment is a ranked fallback therapist for an invalid
// assignment request.
type AlternativeAssignment struct {
	TherapistID        string  `json:"therapist_id"`
	TherapistName      string  `json:"therapist_name"`
	CompatibilityScore float64 `json:"compatibility_score"`
	HeadroomHours      float64 `json:"headroom_hours"`
	// WarningLevel marks alternatives that are themselves within the
	// warning band; they remain eligible but rank below clean candidates.
	WarningLevel bool `json:"warning_level"`
}

// Recommendation suggests an operator action derived from a validation or
// analysis outcome.
type Recommendation struct {
	Type     string        `json:"type"`
	Priority Priority      `json:"priority"`
	Message  BilingualText `json:"message"`
	Actions  []string      `json:"actions,omitempty"`
}

// CapacityValidationResult is the full outcome of validating one assignment
// request. Success is false only when required data could not be read;
// business-rule violations are reported through IsValid and Errors so batch
// callers can keep going.
type CapacityValidationResult struct {
	Success         bool                    `json:"success"`
	Error           string                  `json:"error,omitempty"`
	IsValid         bool                    `json:"is_valid"`
	Errors          []ValidationError       `json:"errors,omitempty"`
	Impact          CapacityImpact          `json:"impact"`
	Alternatives    []AlternativeAssignment `json:"alternatives,omitempty"`
	Recommendations []Recommendation        `json:"recommendations,omitempty"`
}

// CriticalErrors returns the subset of errors with critical severity.
func (r CapacityValidationResult) CriticalErrors() []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical {
			out = append(out, e)
		}
	}
	return out
}

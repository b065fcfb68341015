// Package impact analyzes the downstream consequences of changing an active
// enrollment's parameters before the change is applied.
package impact

import (
	"time"

	"github.com/Alnumo/therapy-engine/core/model"
)

// ModificationType identifies one kind of enrollment change.
type ModificationType int

const (
	FrequencyChange ModificationType = iota
	DurationChange
	TherapistChange
	LocationChange
	ServiceTypeChange
)

// String returns a human-readable representation of the modification type.
func (t ModificationType) String() string {
	switch t {
	case FrequencyChange:
		return "frequency_change"
	case DurationChange:
		return "duration_change"
	case TherapistChange:
		return "therapist_change"
	case LocationChange:
		return "location_change"
	case ServiceTypeChange:
		return "service_type_change"
	default:
		return "unknown"
	}
}

// Analysis horizons in days.
const (
	HorizonImmediateDays = 7
	HorizonShortTermDays = 30
	HorizonLongTermDays  = 90
)

// Scope values accepted in requests. Anything else is treated as ScopeAll.
const (
	ScopeImmediate = "immediate"
	ScopeShortTerm = "short_term"
	ScopeLongTerm  = "long_term"
	ScopeAll       = "all"
)

// horizonDays maps a scope to its analysis window length. Unrecognized
// scopes analyze the full long-term window.
func horizonDays(scope string) int {
	switch scope {
	case ScopeImmediate:
		return HorizonImmediateDays
	case ScopeShortTerm:
		return HorizonShortTermDays
	case ScopeLongTerm, ScopeAll:
		return HorizonLongTermDays
	default:
		return HorizonLongTermDays
	}
}

// Changes carries the proposed new values; only fields matching the
// requested modification types are consulted.
type Changes struct {
	NewFrequency   int
	NewDuration    int
	NewTherapistID string
	NewLocation    string
	NewServiceType string
}

// ModificationRequest asks for an impact analysis of one or more changes to
// an enrollment, effective strictly in the future.
type ModificationRequest struct {
	EnrollmentID        string
	Types               []ModificationType
	Changes             Changes
	Scope               string
	EffectiveDate       time.Time
	IncludeAlternatives bool
}

// ValidationResult lists every problem with a request at once.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ImpactSeverity classifies the overall weight of a modification.
type ImpactSeverity int

const (
	ImpactLow ImpactSeverity = iota
	ImpactMedium
	ImpactHigh
)

// String returns a human-readable representation of the impact severity.
func (s ImpactSeverity) String() string {
	switch s {
	case ImpactLow:
		return "low"
	case ImpactMedium:
		return "medium"
	case ImpactHigh:
		return "high"
	default:
		return "unknown"
	}
}

// CostImplications is the signed financial effect of a modification.
// NetImpact = AdditionalCosts - CostSavings and can be negative.
type CostImplications struct {
	AdditionalCosts float64
	CostSavings     float64
	NetImpact       float64
}

// TimelineImpact summarizes one analysis horizon. All three horizons are
// always reported regardless of the requested scope.
type TimelineImpact struct {
	Horizon          string
	Days             int
	AffectedSessions int
	Summary          string
}

// TherapistImpact describes the workload effect on one side of a therapist
// change.
type TherapistImpact struct {
	TherapistID      string
	Direction        string // "outgoing" or "incoming"
	WeeklyHoursDelta float64
	UtilizationAfter float64
}

// ScheduleAdjustment is a typed change to the session calendar.
type ScheduleAdjustment struct {
	Type        string
	Description model.BilingualText
	SessionIDs  []string
}

// ResourceReallocation records a room or location move.
type ResourceReallocation struct {
	Resource string
	From     string
	To       string
	Sessions int
}

// Recommendation is an actionable suggestion with its risks and fallbacks.
type Recommendation struct {
	Priority     model.Priority
	Actions      []string
	Alternatives []string
	Risks        []string
}

// Result is the full impact analysis outcome. Success is false with Error
// set when the enrollment or its data could not be read, so batch callers
// never see a panic.
type Result struct {
	Success                  bool
	Error                    string
	Types                    []ModificationType
	AffectedSessions         []string
	Overall                  ImpactSeverity
	Costs                    CostImplications
	Timeline                 []TimelineImpact
	TherapistImpacts         []TherapistImpact
	ScheduleAdjustments      []ScheduleAdjustment
	ResourceReallocations    []ResourceReallocation
	StakeholderNotifications []model.Notification
	Recommendations          []Recommendation
}

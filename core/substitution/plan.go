// Package substitution discovers and scores substitute therapists during
// absences and manages the lifecycle of executable, reversible substitution
// plans.
package substitution

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Alnumo/therapy-engine/core/model"
	"github.com/Alnumo/therapy-engine/core/store"
)

// PlanStatus defines the lifecycle state of a substitution plan.
type PlanStatus int

const (
	PlanDraft PlanStatus = iota
	PlanApproved
	PlanInProgress
	PlanCompleted
	PlanPartial
	PlanFailed
	PlanRolledBack
)

// String returns a human-readable representation of the plan status.
func (s PlanStatus) String() string {
	switch s {
	case PlanDraft:
		return "draft"
	case PlanApproved:
		return "approved"
	case PlanInProgress:
		return "in_progress"
	case PlanCompleted:
		return "completed"
	case PlanPartial:
		return "partial"
	case PlanFailed:
		return "failed"
	case PlanRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// transitions is the legal state machine. Illegal transitions are rejected
// at the boundary rather than deep inside execution logic. Applied plans
// (completed or partial) stay reversible until the rollback deadline, which
// the manager enforces separately.
var transitions = map[PlanStatus][]PlanStatus{
	PlanDraft:      {PlanApproved},
	PlanApproved:   {PlanInProgress, PlanRolledBack},
	PlanInProgress: {PlanCompleted, PlanPartial, PlanFailed, PlanRolledBack},
	PlanCompleted:  {PlanRolledBack},
	PlanPartial:    {PlanRolledBack},
}

// CanTransition reports whether moving from s to next is legal.
func (s PlanStatus) CanTransition(next PlanStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Assignment covers a set of sessions with one substitute therapist.
type Assignment struct {
	SubstituteID string   `json:"substitute_id"`
	SessionIDs   []string `json:"session_ids"`
	// CapacityImpact is the workload-impact score (0-100) the coverage
	// puts on the substitute.
	CapacityImpact   float64 `json:"capacity_impact"`
	TrainingRequired bool    `json:"training_required"`
}

// RollbackStep is one ordered undo action. Reversible steps precede
// irreversible ones.
type RollbackStep struct {
	Order        int      `json:"order"`
	Action       string   `json:"action"`
	Description  string   `json:"description"`
	Reversible   bool     `json:"reversible"`
	SubstituteID string   `json:"substitute_id,omitempty"`
	SessionIDs   []string `json:"session_ids,omitempty"`
}

// Rollback actions.
const (
	ActionUnassignSessions  = "unassign_sessions"
	ActionSentNotifications = "sent_notifications"
)

// RollbackPlan describes how and until when a plan can be reversed.
type RollbackPlan struct {
	CanRollback bool           `json:"can_rollback"`
	Deadline    time.Time      `json:"deadline"`
	Steps       []RollbackStep `json:"steps"`
	Impact      string         `json:"impact"`
}

// Plan is an executable, reversible substitution plan.
type Plan struct {
	ID                 string                    `json:"id"`
	Request            model.SubstitutionRequest `json:"request"`
	Status             PlanStatus                `json:"status"`
	Assignments        []Assignment              `json:"assignments"`
	Notifications      []model.Notification      `json:"notifications"`
	UnassignedSessions []string                  `json:"unassigned_sessions"`
	// DisruptionScore (0-100) combines uncovered-session fraction and
	// substitute strain.
	DisruptionScore float64      `json:"disruption_score"`
	Rollback        RollbackPlan `json:"rollback"`
	// OriginalTherapist is kept so rollback can restore session ownership.
	OriginalTherapist string    `json:"original_therapist"`
	CreatedAt         time.Time `json:"created_at"`
}

// CoveredSessions returns the total number of sessions assigned to
// substitutes.
func (p Plan) CoveredSessions() int {
	n := 0
	for _, a := range p.Assignments {
		n += len(a.SessionIDs)
	}
	return n
}

// encode serializes the plan for the plan store.
func (p Plan) encode() (store.PlanRecord, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return store.PlanRecord{}, fmt.Errorf("encode plan %s: %w", p.ID, err)
	}
	return store.PlanRecord{ID: p.ID, Status: p.Status.String(), Payload: b, UpdatedAt: time.Now()}, nil
}

// decodePlan deserializes a stored plan record.
func decodePlan(rec store.PlanRecord) (Plan, error) {
	var p Plan
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return Plan{}, fmt.Errorf("decode plan %s: %w", rec.ID, err)
	}
	return p, nil
}

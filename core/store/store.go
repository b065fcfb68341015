// Package store defines the persistence interfaces the engine depends on.
// Concrete implementations live under infra/store; the engine only assumes
// reads can be scoped by therapist, date range and status, and that a single
// assignment write is atomic.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Alnumo/therapy-engine/core/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// SessionQuery filters scheduled-session reads. From is inclusive and To is
// exclusive, so adjacent week windows never count the same session twice.
type SessionQuery struct {
	TherapistID  string
	EnrollmentID string
	From         time.Time
	To           time.Time
	// Statuses limits results to the given statuses. Empty means all.
	Statuses []model.SessionStatus
}

// Matches reports whether the session satisfies the query filters.
func (q SessionQuery) Matches(s model.ScheduledSession) bool {
	if q.TherapistID != "" && s.TherapistID != q.TherapistID {
		return false
	}
	if q.EnrollmentID != "" && s.EnrollmentID != q.EnrollmentID {
		return false
	}
	if !q.From.IsZero() && s.Start.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !s.Start.Before(q.To) {
		return false
	}
	if len(q.Statuses) > 0 {
		ok := false
		for _, st := range q.Statuses {
			if s.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// TherapistStore reads and updates therapist records.
type TherapistStore interface {
	Therapist(ctx context.Context, id string) (model.Therapist, error)
	ActiveTherapists(ctx context.Context) ([]model.Therapist, error)
}

// EnrollmentStore reads and writes enrollments.
type EnrollmentStore interface {
	Enrollment(ctx context.Context, id string) (model.Enrollment, error)
	EnrollmentsByTherapist(ctx context.Context, therapistID string, statuses ...model.EnrollmentStatus) ([]model.Enrollment, error)
	SaveEnrollment(ctx context.Context, e model.Enrollment) error
}

// SessionStore reads and writes scheduled sessions.
type SessionStore interface {
	Sessions(ctx context.Context, q SessionQuery) ([]model.ScheduledSession, error)
	SaveSession(ctx context.Context, s model.ScheduledSession) error
}

// Assignment records an accepted assignment of a student to a therapist.
type Assignment struct {
	ID          string
	TherapistID string
	StudentID   string
	ProgramID   string
	Frequency   int
	Duration    int
	CreatedAt   time.Time
}

// AssignmentStore persists accepted assignments. A single write must be
// atomic so concurrent bulk items touching disjoint therapists stay safe.
type AssignmentStore interface {
	SaveAssignment(ctx context.Context, a Assignment) error
	DeleteAssignment(ctx context.Context, id string) error
}

// PlanRecord is the persisted form of a substitution plan. The substitution
// package owns the full plan structure; the store only needs an opaque
// payload keyed by id and status for transition-safe updates.
type PlanRecord struct {
	ID        string
	Status    string
	Payload   []byte
	UpdatedAt time.Time
}

// PlanStore persists substitution plans and their status transitions.
type PlanStore interface {
	Plan(ctx context.Context, id string) (PlanRecord, error)
	SavePlan(ctx context.Context, rec PlanRecord) error
}

// Store aggregates all persistence interfaces the engine uses.
type Store interface {
	TherapistStore
	EnrollmentStore
	SessionStore
	AssignmentStore
	PlanStore
}

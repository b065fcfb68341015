package model

import "time"

// SessionStatus defines the lifecycle state of a scheduled session.
type SessionStatus int

const (
	SessionScheduled SessionStatus = iota
	SessionCompleted
	SessionCancelled
	SessionNoShow
)

// String returns a human-readable representation of the session status.
func (s SessionStatus) String() string {
	switch s {
	case SessionScheduled:
		return "scheduled"
	case SessionCompleted:
		return "completed"
	case SessionCancelled:
		return "cancelled"
	case SessionNoShow:
		return "no_show"
	default:
		return "unknown"
	}
}

// ScheduledSession is a concrete session occurrence belonging to an
// enrollment. It is the unit capacity, substitution and impact calculations
// operate on.
type ScheduledSession struct {
	ID            string
	EnrollmentID  string
	StudentID     string
	TherapistID   string
	Start         time.Time
	End           time.Time
	Room          string
	Status        SessionStatus
	TravelMinutes int
}

// DurationMinutes returns the session length in minutes.
func (s ScheduledSession) DurationMinutes() float64 {
	return s.End.Sub(s.Start).Minutes()
}

// Counted reports whether the session counts toward workload. Cancelled and
// no-show sessions do not consume therapist capacity.
func (s ScheduledSession) Counted() bool {
	return s.Status == SessionScheduled || s.Status == SessionCompleted
}

package eventbus

import "time"

// ValidationEvent is published after each capacity validation.
type ValidationEvent struct {
	TherapistID          string
	StudentID            string
	Valid                bool
	ProjectedUtilization float64
	Time                 time.Time
}

// PlanEvent is published on substitution-plan lifecycle transitions.
type PlanEvent struct {
	PlanID string
	From   string
	To     string
	Time   time.Time
}

// AlertEvent is published for each capacity alert raised by the monitor.
type AlertEvent struct {
	TherapistID string
	Severity    string
	Utilization float64
	Time        time.Time
}

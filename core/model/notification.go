package model

import "time"

// RecipientType identifies who a notification is addressed to.
type RecipientType int

const (
	RecipientTherapist RecipientType = iota
	RecipientStudent
	RecipientParent
	RecipientAdmin
)

// String returns a human-readable representation of the recipient type.
func (r RecipientType) String() string {
	switch r {
	case RecipientTherapist:
		return "therapist"
	case RecipientStudent:
		return "student"
	case RecipientParent:
		return "parent"
	case RecipientAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Notification is a message the engine decides to send. Actual delivery is
// the dispatch collaborator's responsibility; the engine fixes the content,
// the recipient and the send time.
type Notification struct {
	ID                   string
	RecipientType        RecipientType
	RecipientID          string
	Channel              string
	Priority             Priority
	Template             BilingualText
	RequiresConfirmation bool
	SendTime             time.Time
}

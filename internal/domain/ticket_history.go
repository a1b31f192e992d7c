package domain

import "time"

// TicketHistory is an immutable audit trail entry for a lifecycle transition.
type TicketHistory struct {
	ID           string
	TicketID     string
	AssignmentID *string
	ActorID      string
	Transition   string
	OldValue     map[string]any
	NewValue     map[string]any
	CreatedAt    time.Time
}

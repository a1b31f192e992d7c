package events

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated            EventType = "ticket_created"
	EventAssignmentCreated        EventType = "assignment_created"
	EventAssignmentAccepted       EventType = "assignment_accepted"
	EventWorkStarted              EventType = "work_started"
	EventEvidenceSubmitted        EventType = "evidence_submitted"
	EventVerificationApproved     EventType = "verification_approved"
	EventVerificationRejected     EventType = "verification_rejected"
	EventRepairLogged             EventType = "repair_logged"
	EventTicketCancelled          EventType = "ticket_cancelled"
	EventTicketReopened           EventType = "ticket_reopened"
	EventTechnicianDecommissioned EventType = "technician_decommissioned"
)

// Event represents a lifecycle event emitted after a transition commits.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id,omitempty"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketPayload carries the committed ticket and the assignment the
// transition released, if any.
type TicketPayload struct {
	Ticket     domain.Ticket      `json:"ticket"`
	Assignment *domain.Assignment `json:"assignment,omitempty"`
	Reason     string             `json:"reason,omitempty"`
}

// AssignmentPayload carries the committed ticket and assignment pair.
type AssignmentPayload struct {
	Ticket     domain.Ticket     `json:"ticket"`
	Assignment domain.Assignment `json:"assignment"`
	Reason     string            `json:"reason,omitempty"`
}

// RepairLoggedPayload payload.
type RepairLoggedPayload struct {
	Ticket     domain.Ticket     `json:"ticket"`
	Assignment domain.Assignment `json:"assignment"`
	Log        domain.RepairLog  `json:"log"`
}

// TechnicianDecommissionedPayload payload.
type TechnicianDecommissionedPayload struct {
	TechnicianID string   `json:"technician_id"`
	ResetTickets []string `json:"reset_tickets"`
}

package dto

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Category    string `json:"category"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Priority    string `json:"priority"`
}

// AssignRequest payload. NeedsVerification defaults to true.
type AssignRequest struct {
	TechnicianID      string `json:"technician_id"`
	NeedsVerification *bool  `json:"needs_verification"`
}

// CancelRequest payload.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	ReporterID   string                `json:"reporter_id"`
	Category     string                `json:"category"`
	Subject      string                `json:"subject"`
	Description  string                `json:"description"`
	Location     string                `json:"location"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	CompletedAt  *time.Time            `json:"completed_at"`
}

// TicketDetailResponse is a ticket with its active assignment and audit trail.
type TicketDetailResponse struct {
	TicketResponse
	Assignment *AssignmentResponse     `json:"assignment"`
	History    []TicketHistoryResponse `json:"history"`
}

// TicketHistoryResponse represents an audit entry.
type TicketHistoryResponse struct {
	ID           string         `json:"id"`
	AssignmentID *string        `json:"assignment_id"`
	ActorID      string         `json:"actor_id"`
	Transition   string         `json:"transition"`
	OldValue     map[string]any `json:"old_value"`
	NewValue     map[string]any `json:"new_value"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		TicketNumber: t.TicketNumber,
		ReporterID:   t.ReporterID,
		Category:     t.Category,
		Subject:      t.Subject,
		Description:  t.Description,
		Location:     t.Location,
		Priority:     t.Priority,
		Status:       t.Status,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		CompletedAt:  t.CompletedAt,
	}
}

// NewTicketHistoryResponses maps audit entries.
func NewTicketHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	items := make([]TicketHistoryResponse, 0, len(entries))
	for _, h := range entries {
		items = append(items, TicketHistoryResponse{
			ID:           h.ID,
			AssignmentID: h.AssignmentID,
			ActorID:      h.ActorID,
			Transition:   h.Transition,
			OldValue:     h.OldValue,
			NewValue:     h.NewValue,
			CreatedAt:    h.CreatedAt,
		})
	}
	return items
}

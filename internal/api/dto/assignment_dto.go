package dto

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// EvidenceRequest payload.
type EvidenceRequest struct {
	Images []string `json:"images"`
}

// VerifyRequest payload.
type VerifyRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// RepairLogRequest payload.
type RepairLogRequest struct {
	Description string   `json:"description"`
	Action      string   `json:"action"`
	Status      string   `json:"status"`
	TimeSpent   int      `json:"time_spent"`
	Attachments []string `json:"attachments"`
}

// AssignmentResponse represents an assignment.
type AssignmentResponse struct {
	ID                 string                  `json:"id"`
	TicketID           string                  `json:"ticket_id"`
	TechnicianID       string                  `json:"technician_id"`
	AssignedByID       string                  `json:"assigned_by_id"`
	Status             domain.AssignmentStatus `json:"status"`
	VerificationStatus *string                 `json:"verification_status"`
	NeedsVerification  bool                    `json:"needs_verification"`
	StartTime          *time.Time              `json:"start_time"`
	EndTime            *time.Time              `json:"end_time"`
	Notes              string                  `json:"notes"`
	CompletionNotes    *domain.CompletionNotes `json:"completion_notes"`
	RejectionReason    *string                 `json:"rejection_reason"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// RepairLogResponse represents a journal entry.
type RepairLogResponse struct {
	ID           string                 `json:"id"`
	AssignmentID string                 `json:"assignment_id"`
	TechnicianID string                 `json:"technician_id"`
	Description  string                 `json:"description"`
	Action       string                 `json:"action"`
	Status       domain.RepairLogStatus `json:"status"`
	TimeSpent    int                    `json:"time_spent"`
	Attachments  []string               `json:"attachments"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewAssignmentResponse maps an assignment.
func NewAssignmentResponse(a *domain.Assignment) *AssignmentResponse {
	if a == nil {
		return nil
	}
	resp := &AssignmentResponse{
		ID:                a.ID,
		TicketID:          a.TicketID,
		TechnicianID:      a.TechnicianID,
		AssignedByID:      a.AssignedByID,
		Status:            a.Status,
		NeedsVerification: a.NeedsVerification,
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		Notes:             a.Notes,
		CompletionNotes:   a.CompletionNotes,
		RejectionReason:   a.RejectionReason,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
	if v := a.Verification(); v != "" {
		s := string(v)
		resp.VerificationStatus = &s
	}
	return resp
}

// NewRepairLogResponse maps a repair log.
func NewRepairLogResponse(l *domain.RepairLog) RepairLogResponse {
	attachments := l.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return RepairLogResponse{
		ID:           l.ID,
		AssignmentID: l.AssignmentID,
		TechnicianID: l.TechnicianID,
		Description:  l.Description,
		Action:       l.Action,
		Status:       l.Status,
		TimeSpent:    l.TimeSpent,
		Attachments:  attachments,
		CreatedAt:    l.CreatedAt,
	}
}

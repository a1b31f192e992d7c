package lifecycle

import (
	"strings"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

func conflict(message string, a *domain.Assignment) error {
	return apperrors.NewConflict(message, map[string]any{
		"assignment_id":       a.ID,
		"status":              string(a.Status),
		"verification_status": string(a.Verification()),
	})
}

// CheckAssign validates that a ticket can receive a new assignment.
func CheckAssign(t *domain.Ticket, active *domain.Assignment) error {
	if active != nil && active.Active() {
		return apperrors.NewConflict("ticket already has an active assignment", map[string]any{
			"ticket_id":     t.ID,
			"assignment_id": active.ID,
		})
	}
	if t.Status != domain.TicketStatusPending {
		return apperrors.NewConflict("ticket is not pending", map[string]any{
			"ticket_id": t.ID,
			"status":    string(t.Status),
		})
	}
	return nil
}

// ApplyAccept records the technician accepting the job.
func ApplyAccept(a *domain.Assignment) error {
	if a.Status != domain.AssignmentStatusPending {
		return conflict("assignment cannot be accepted in current status", a)
	}
	a.Status = domain.AssignmentStatusAccepted
	return nil
}

// ApplyStartWork moves the assignment into active work.
func ApplyStartWork(a *domain.Assignment, now time.Time) error {
	if a.Status != domain.AssignmentStatusPending && a.Status != domain.AssignmentStatusAccepted {
		return conflict("work cannot be started in current status", a)
	}
	a.Status = domain.AssignmentStatusInProgress
	if a.StartTime == nil {
		a.StartTime = &now
	}
	return nil
}

// CleanImages drops blank references, keeping order.
func CleanImages(images []string) []string {
	cleaned := make([]string, 0, len(images))
	for _, img := range images {
		if trimmed := strings.TrimSpace(img); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// CheckWorkable rejects assignments on which a technician can no longer act.
func CheckWorkable(a *domain.Assignment) error {
	if a.Status == domain.AssignmentStatusRejected {
		return conflict("assignment was cancelled", a)
	}
	if a.Status == domain.AssignmentStatusCompleted {
		switch a.Verification() {
		case domain.VerificationApproved:
			return conflict("assignment is already closed", a)
		case domain.VerificationPending:
			return conflict("evidence is already awaiting verification", a)
		}
	}
	return nil
}

// ApplyCompletion stores evidence and marks the work completed. Assignments
// without verification are approved in the same step so the ticket closes
// immediately.
func ApplyCompletion(a *domain.Assignment, images []string, now time.Time) error {
	if err := CheckWorkable(a); err != nil {
		return err
	}
	a.CompletionNotes = &domain.CompletionNotes{
		Images:     append([]string(nil), images...),
		UploadedAt: now,
	}
	if a.StartTime == nil {
		a.StartTime = &now
	}
	a.EndTime = &now
	a.Status = domain.AssignmentStatusCompleted
	verification := domain.VerificationPending
	if !a.NeedsVerification {
		verification = domain.VerificationApproved
	}
	a.VerificationStatus = &verification
	a.RejectionReason = nil
	return nil
}

// ApplySubmitEvidence validates the evidence then applies completion.
func ApplySubmitEvidence(a *domain.Assignment, images []string, now time.Time) error {
	cleaned := CleanImages(images)
	if len(cleaned) == 0 {
		return apperrors.NewValidationError("at least one image is required", map[string]any{
			"assignment_id": a.ID,
		})
	}
	return ApplyCompletion(a, cleaned, now)
}

func checkAwaitingVerification(a *domain.Assignment) error {
	if a.Verification() != domain.VerificationPending || a.Status != domain.AssignmentStatusCompleted {
		return conflict("assignment is not awaiting verification", a)
	}
	return nil
}

// ApplyApprove accepts the submitted evidence.
func ApplyApprove(a *domain.Assignment) error {
	if err := checkAwaitingVerification(a); err != nil {
		return err
	}
	approved := domain.VerificationApproved
	a.VerificationStatus = &approved
	return nil
}

// ApplyReject sends the work back to the technician on the same assignment.
func ApplyReject(a *domain.Assignment, reason string) error {
	if err := checkAwaitingVerification(a); err != nil {
		return err
	}
	rejected := domain.VerificationRejected
	a.VerificationStatus = &rejected
	a.Status = domain.AssignmentStatusInProgress
	a.EndTime = nil
	if reason = strings.TrimSpace(reason); reason != "" {
		a.RejectionReason = &reason
	}
	return nil
}

// ApplyCancel releases the ticket from an assignment administratively.
func ApplyCancel(a *domain.Assignment) {
	a.Status = domain.AssignmentStatusRejected
	a.EndTime = nil
}

// CheckLoggable rejects repair logs on assignments that no longer hold work.
// Logging while evidence awaits review is allowed.
func CheckLoggable(a *domain.Assignment) error {
	if a.Status == domain.AssignmentStatusRejected {
		return conflict("assignment was cancelled", a)
	}
	if a.Status == domain.AssignmentStatusCompleted && a.Verification() == domain.VerificationApproved {
		return conflict("assignment is already closed", a)
	}
	return nil
}

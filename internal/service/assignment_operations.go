package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// VerifyAction is the reviewer's decision on submitted evidence.
type VerifyAction string

const (
	VerifyApprove VerifyAction = "APPROVE"
	VerifyReject  VerifyAction = "REJECT"
)

// ParseVerifyAction upper-cases raw and maps it onto a VerifyAction.
func ParseVerifyAction(raw string) (VerifyAction, bool) {
	action := VerifyAction(strings.ToUpper(strings.TrimSpace(raw)))
	switch action {
	case VerifyApprove, VerifyReject:
		return action, true
	}
	return "", false
}

// RepairLogInput describes a technician journal entry.
type RepairLogInput struct {
	Description string
	Action      string
	Status      domain.RepairLogStatus
	TimeSpent   int
	Attachments []string
}

// Accept records the assigned technician taking the job.
func (c *LifecycleCoordinator) Accept(ctx context.Context, actor domain.Actor, assignmentID string) (*domain.Assignment, error) {
	const transition = lifecycle.TransitionAccept
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}
	ticket, assignment, err := c.mutateAssignment(ctx, transition, actor, assignmentID,
		func(_ context.Context, _ time.Time, _ *domain.Ticket, a *domain.Assignment) error {
			return lifecycle.ApplyAccept(a)
		})
	if err != nil {
		return nil, err
	}
	c.publishAssignment(ctx, events.EventAssignmentAccepted, actor, ticket, assignment, "")
	return assignment, nil
}

// StartWork moves the assignment and its ticket into IN_PROGRESS.
func (c *LifecycleCoordinator) StartWork(ctx context.Context, actor domain.Actor, assignmentID string) (*domain.Assignment, error) {
	const transition = lifecycle.TransitionStartWork
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}
	ticket, assignment, err := c.mutateAssignment(ctx, transition, actor, assignmentID,
		func(_ context.Context, now time.Time, _ *domain.Ticket, a *domain.Assignment) error {
			return lifecycle.ApplyStartWork(a, now)
		})
	if err != nil {
		return nil, err
	}
	c.publishAssignment(ctx, events.EventWorkStarted, actor, ticket, assignment, "")
	return assignment, nil
}

// SubmitEvidence completes the work with photo references. With verification
// the ticket waits for review; without it the ticket closes immediately.
func (c *LifecycleCoordinator) SubmitEvidence(ctx context.Context, actor domain.Actor, assignmentID string, images []string) (*domain.Assignment, error) {
	const transition = lifecycle.TransitionSubmitEvidence
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}
	if len(lifecycle.CleanImages(images)) == 0 {
		err := apperrors.NewValidationError("at least one image is required", map[string]any{"assignment_id": assignmentID})
		c.record(transition, err)
		return nil, err
	}
	ticket, assignment, err := c.mutateAssignment(ctx, transition, actor, assignmentID,
		func(_ context.Context, now time.Time, _ *domain.Ticket, a *domain.Assignment) error {
			return lifecycle.ApplySubmitEvidence(a, images, now)
		})
	if err != nil {
		return nil, err
	}
	c.publishAssignment(ctx, events.EventEvidenceSubmitted, actor, ticket, assignment, "")
	return assignment, nil
}

// Verify approves or rejects evidence awaiting review. A rejection sends the
// same assignment back to IN_PROGRESS for rework.
func (c *LifecycleCoordinator) Verify(ctx context.Context, actor domain.Actor, assignmentID string, action VerifyAction, reason string) (*domain.Assignment, error) {
	var (
		transition lifecycle.Transition
		eventType  events.EventType
		step       assignmentStep
	)
	reason = strings.TrimSpace(reason)
	switch action {
	case VerifyApprove:
		transition, eventType = lifecycle.TransitionApprove, events.EventVerificationApproved
		step = func(_ context.Context, _ time.Time, _ *domain.Ticket, a *domain.Assignment) error {
			return lifecycle.ApplyApprove(a)
		}
	case VerifyReject:
		transition, eventType = lifecycle.TransitionReject, events.EventVerificationRejected
		step = func(_ context.Context, _ time.Time, _ *domain.Ticket, a *domain.Assignment) error {
			return lifecycle.ApplyReject(a, reason)
		}
	default:
		if err := c.authorize(lifecycle.TransitionVerify, actor); err != nil {
			return nil, err
		}
		err := apperrors.NewValidationError("action must be APPROVE or REJECT", map[string]any{"action": string(action)})
		c.record(lifecycle.TransitionVerify, err)
		return nil, err
	}
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}
	if action == VerifyReject && reason == "" && c.cfg.RequireRejectReason {
		err := apperrors.NewValidationError("a reason is required to reject work", map[string]any{"assignment_id": assignmentID})
		c.record(transition, err)
		return nil, err
	}

	ticket, assignment, err := c.mutateAssignment(ctx, transition, actor, assignmentID, step)
	if err != nil {
		return nil, err
	}
	c.publishAssignment(ctx, eventType, actor, ticket, assignment, reason)
	return assignment, nil
}

// AddRepairLog appends a journal entry. A COMPLETED entry also submits its
// attachments as completion evidence.
func (c *LifecycleCoordinator) AddRepairLog(ctx context.Context, actor domain.Actor, assignmentID string, input RepairLogInput) (*domain.RepairLog, error) {
	const transition = lifecycle.TransitionAddRepairLog
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}
	input.Description = strings.TrimSpace(input.Description)
	input.Action = strings.TrimSpace(input.Action)
	if err := validateRepairLog(input); err != nil {
		c.record(transition, err)
		return nil, err
	}

	var entry *domain.RepairLog
	ticket, assignment, err := c.mutateAssignment(ctx, transition, actor, assignmentID,
		func(ctx context.Context, now time.Time, _ *domain.Ticket, a *domain.Assignment) error {
			if err := lifecycle.CheckLoggable(a); err != nil {
				return err
			}
			if input.Status == domain.RepairLogCompleted {
				if err := lifecycle.ApplySubmitEvidence(a, input.Attachments, now); err != nil {
					return err
				}
			}
			entry = &domain.RepairLog{
				AssignmentID: a.ID,
				TechnicianID: actor.UserID,
				Description:  input.Description,
				Action:       input.Action,
				Status:       input.Status,
				TimeSpent:    input.TimeSpent,
				Attachments:  lifecycle.CleanImages(input.Attachments),
			}
			if err := c.repairLogs.Create(ctx, entry); err != nil {
				return storeError("repair log", a.ID, err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, events.Event{
		Type:     events.EventRepairLogged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.RepairLoggedPayload{Ticket: *ticket, Assignment: *assignment, Log: *entry},
	})
	if input.Status == domain.RepairLogCompleted {
		c.publishAssignment(ctx, events.EventEvidenceSubmitted, actor, ticket, assignment, "")
	}
	return entry, nil
}

// GetAssignment returns an assignment visible to the actor: reviewers see all,
// technicians their own, reporters those of their tickets.
func (c *LifecycleCoordinator) GetAssignment(ctx context.Context, actor domain.Actor, assignmentID string) (*domain.Assignment, error) {
	if actor.UserID == "" {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	a, err := c.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, storeError("assignment", assignmentID, err)
	}
	if canReview(actor.Role) || a.TechnicianID == actor.UserID {
		return a, nil
	}
	t, err := c.tickets.GetByID(ctx, a.TicketID)
	if err != nil {
		return nil, storeError("ticket", a.TicketID, err)
	}
	if t.ReporterID != actor.UserID {
		return nil, apperrors.NewForbidden("assignment not visible to actor", map[string]any{"assignment_id": assignmentID})
	}
	return a, nil
}

// ListRepairLogs returns the journal of a visible assignment in insertion order.
func (c *LifecycleCoordinator) ListRepairLogs(ctx context.Context, actor domain.Actor, assignmentID string) ([]domain.RepairLog, error) {
	if _, err := c.GetAssignment(ctx, actor, assignmentID); err != nil {
		return nil, err
	}
	logs, err := c.repairLogs.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, storeError("repair log", assignmentID, err)
	}
	return logs, nil
}

func (c *LifecycleCoordinator) publishAssignment(ctx context.Context, eventType events.EventType, actor domain.Actor, t *domain.Ticket, a *domain.Assignment, reason string) {
	c.publish(ctx, events.Event{
		Type:     eventType,
		TicketID: t.ID,
		Actor:    actor,
		Payload:  events.AssignmentPayload{Ticket: *t, Assignment: *a.Clone(), Reason: reason},
	})
}

func validateRepairLog(input RepairLogInput) error {
	details := map[string]any{}
	if input.Description == "" {
		details["description"] = "required"
	}
	if !input.Status.Valid() {
		details["status"] = "must be ONGOING, COMPLETED or NEED_PARTS"
	}
	if input.TimeSpent < 0 {
		details["time_spent"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid repair log", details)
	}
	return nil
}

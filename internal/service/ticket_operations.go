package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const ticketNumberAttempts = 3

// CreateTicketInput describes a fault report.
type CreateTicketInput struct {
	Category    string
	Subject     string
	Description string
	Location    string
	Priority    domain.TicketPriority
}

// TicketView is a ticket together with its active assignment, if any.
type TicketView struct {
	Ticket     domain.Ticket      `json:"ticket"`
	Assignment *domain.Assignment `json:"assignment,omitempty"`
}

// CreateTicket records a new PENDING ticket for the actor.
func (c *LifecycleCoordinator) CreateTicket(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if err := c.authorize(lifecycle.TransitionCreateTicket, actor); err != nil {
		return nil, err
	}
	ticket, err := validateTicketInput(input)
	if err != nil {
		c.record(lifecycle.TransitionCreateTicket, err)
		return nil, err
	}
	ticket.ReporterID = actor.UserID
	ticket.Status = domain.TicketStatusPending

	for attempt := 0; attempt < ticketNumberAttempts; attempt++ {
		ticket.TicketNumber = generateTicketNumber()
		err = c.uow.WithTx(ctx, func(ctx context.Context) error {
			if err := c.tickets.Create(ctx, ticket); err != nil {
				return err
			}
			return c.writeHistory(ctx, lifecycle.TransitionCreateTicket, actor, ticket.ID, nil,
				nil, map[string]any{"ticket_status": string(ticket.Status)})
		})
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		err = storeError("ticket", ticket.TicketNumber, err)
		c.record(lifecycle.TransitionCreateTicket, err)
		return nil, err
	}
	c.record(lifecycle.TransitionCreateTicket, nil)
	c.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.String("actor_id", actor.UserID))

	c.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketPayload{Ticket: *ticket},
	})
	return ticket, nil
}

// Assign binds a technician to a PENDING ticket.
func (c *LifecycleCoordinator) Assign(ctx context.Context, actor domain.Actor, ticketID, technicianID string, needsVerification bool) (*domain.Assignment, error) {
	const transition = lifecycle.TransitionAssign
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(technicianID) == "" {
		err := apperrors.NewValidationError("technician id is required", nil)
		c.record(transition, err)
		return nil, err
	}

	var (
		ticket     *domain.Ticket
		assignment *domain.Assignment
	)
	// Lock order: technician profile, ticket, assignment. Decommission takes
	// the profile first as well, so an assignment cannot slip past its cascade.
	err := c.uow.WithTx(ctx, func(ctx context.Context) error {
		if err := c.checkTechnician(ctx, technicianID); err != nil {
			return err
		}
		t, err := c.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return storeError("ticket", ticketID, err)
		}
		active, err := c.assignments.GetActiveByTicket(ctx, t.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return storeError("assignment", t.ID, err)
		}
		if err := lifecycle.CheckAssign(t, active); err != nil {
			return err
		}

		a := &domain.Assignment{
			TicketID:          t.ID,
			TechnicianID:      technicianID,
			AssignedByID:      actor.UserID,
			Status:            domain.AssignmentStatusPending,
			NeedsVerification: needsVerification,
		}
		if err := c.assignments.Create(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewConflict("ticket already has an active assignment", map[string]any{"ticket_id": t.ID})
			}
			return storeError("assignment", t.ID, err)
		}
		updated, err := c.setTicketStatus(ctx, t, lifecycle.TicketStatusFor(a), c.now())
		if err != nil {
			return err
		}
		if err := c.writeHistory(ctx, transition, actor, t.ID, &a.ID, stateValues(t.Status, nil), stateValues(updated.Status, a)); err != nil {
			return err
		}
		ticket, assignment = updated, a
		return nil
	})
	c.record(transition, err)
	if err != nil {
		return nil, err
	}
	c.logger.Info("transition committed",
		zap.String("transition", string(transition)),
		zap.String("ticket_id", ticket.ID),
		zap.String("assignment_id", assignment.ID),
		zap.String("technician_id", technicianID),
		zap.String("actor_id", actor.UserID))

	c.publish(ctx, events.Event{
		Type:     events.EventAssignmentCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.AssignmentPayload{Ticket: *ticket, Assignment: *assignment},
	})
	return assignment, nil
}

func (c *LifecycleCoordinator) checkTechnician(ctx context.Context, technicianID string) error {
	user, err := c.users.GetByID(ctx, technicianID)
	if err != nil {
		return storeError("technician", technicianID, err)
	}
	if user.Role != domain.RoleTechnician || !user.Active {
		return apperrors.NewValidationError("user is not an active technician", map[string]any{
			"technician_id": technicianID,
			"role":          string(user.Role),
			"active":        user.Active,
		})
	}
	if _, err := c.technicians.GetForUpdate(ctx, technicianID); err != nil {
		return storeError("technician", technicianID, err)
	}
	return nil
}

// Cancel closes a non-terminal ticket administratively and releases its
// active assignment.
func (c *LifecycleCoordinator) Cancel(ctx context.Context, actor domain.Actor, ticketID, reason string) (*domain.Ticket, error) {
	const transition = lifecycle.TransitionCancel
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	var (
		ticket   *domain.Ticket
		released *domain.Assignment
	)
	err := c.uow.WithTx(ctx, func(ctx context.Context) error {
		t, err := c.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return storeError("ticket", ticketID, err)
		}
		if t.Status.Terminal() {
			return apperrors.NewConflict("ticket is already closed", map[string]any{
				"ticket_id": t.ID,
				"status":    string(t.Status),
			})
		}
		active, err := c.assignments.GetActiveByTicket(ctx, t.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return storeError("assignment", t.ID, err)
		}

		var assignmentID *string
		before := stateValues(t.Status, nil)
		if active != nil {
			a, err := c.assignments.GetForUpdate(ctx, active.ID)
			if err != nil {
				return storeError("assignment", active.ID, err)
			}
			before = stateValues(t.Status, a)
			lifecycle.ApplyCancel(a)
			if err := c.assignments.Update(ctx, a); err != nil {
				return storeError("assignment", a.ID, err)
			}
			released, assignmentID = a, &a.ID
		}
		updated, err := c.setTicketStatus(ctx, t, domain.TicketStatusCancelled, c.now())
		if err != nil {
			return err
		}
		after := stateValues(updated.Status, released)
		if reason != "" {
			after["reason"] = reason
		}
		if err := c.writeHistory(ctx, transition, actor, t.ID, assignmentID, before, after); err != nil {
			return err
		}
		ticket = updated
		return nil
	})
	c.record(transition, err)
	if err != nil {
		return nil, err
	}
	c.logger.Info("transition committed",
		zap.String("transition", string(transition)),
		zap.String("ticket_id", ticket.ID),
		zap.Bool("released_assignment", released != nil),
		zap.String("actor_id", actor.UserID))

	c.publish(ctx, events.Event{
		Type:     events.EventTicketCancelled,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketPayload{Ticket: *ticket, Assignment: released, Reason: reason},
	})
	return ticket, nil
}

// Reopen returns a CANCELLED ticket to PENDING so it can be assigned again.
func (c *LifecycleCoordinator) Reopen(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	const transition = lifecycle.TransitionReopen
	if err := c.authorize(transition, actor); err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err := c.uow.WithTx(ctx, func(ctx context.Context) error {
		t, err := c.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return storeError("ticket", ticketID, err)
		}
		if t.Status != domain.TicketStatusCancelled {
			return apperrors.NewConflict("only cancelled tickets can be reopened", map[string]any{
				"ticket_id": t.ID,
				"status":    string(t.Status),
			})
		}
		updated, err := c.setTicketStatus(ctx, t, domain.TicketStatusPending, c.now())
		if err != nil {
			return err
		}
		if err := c.writeHistory(ctx, transition, actor, t.ID, nil, stateValues(t.Status, nil), stateValues(updated.Status, nil)); err != nil {
			return err
		}
		ticket = updated
		return nil
	})
	c.record(transition, err)
	if err != nil {
		return nil, err
	}
	c.logger.Info("transition committed",
		zap.String("transition", string(transition)),
		zap.String("ticket_id", ticket.ID),
		zap.String("actor_id", actor.UserID))

	c.publish(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketPayload{Ticket: *ticket},
	})
	return ticket, nil
}

// GetTicket returns a ticket and its active assignment. Reviewers see every
// ticket; others see tickets they reported or are working on.
func (c *LifecycleCoordinator) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketView, error) {
	if actor.UserID == "" {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	t, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError("ticket", ticketID, err)
	}
	active, err := c.assignments.GetActiveByTicket(ctx, ticketID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError("assignment", ticketID, err)
	}
	if !canReview(actor.Role) && t.ReporterID != actor.UserID && (active == nil || active.TechnicianID != actor.UserID) {
		return nil, apperrors.NewForbidden("ticket not visible to actor", map[string]any{"ticket_id": ticketID})
	}
	return &TicketView{Ticket: *t, Assignment: active}, nil
}

// ListTickets returns the tickets the actor reported.
func (c *LifecycleCoordinator) ListTickets(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.Ticket, error) {
	if actor.UserID == "" {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	items, err := c.tickets.ListByReporter(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, storeError("ticket", actor.UserID, err)
	}
	return items, nil
}

// History returns the audit trail of a visible ticket.
func (c *LifecycleCoordinator) History(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := c.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	items, err := c.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError("ticket history", ticketID, err)
	}
	return items, nil
}

func validateTicketInput(input CreateTicketInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Category:    strings.TrimSpace(input.Category),
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Priority:    input.Priority,
	}
	missing := []string{}
	if ticket.Category == "" {
		missing = append(missing, "category")
	}
	if ticket.Subject == "" {
		missing = append(missing, "subject")
	}
	if ticket.Description == "" {
		missing = append(missing, "description")
	}
	if ticket.Location == "" {
		missing = append(missing, "location")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if !ticket.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(ticket.Priority)})
	}
	return ticket, nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

// LifecycleCoordinator runs every ticket and assignment transition. Each
// transition checks the role guard, then locks the ticket and the assignment
// (in that order), re-validates, writes both rows and a history entry in one
// unit of work, and publishes an event once the work has committed.
type LifecycleCoordinator struct {
	uow           repository.UnitOfWork
	tickets       repository.TicketRepository
	assignments   repository.AssignmentRepository
	repairLogs    repository.RepairLogRepository
	users         repository.UserRepository
	technicians   repository.TechnicianRepository
	notifications repository.NotificationRepository
	history       repository.TicketHistoryRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
	cfg           config.LifecycleConfig
	now           func() time.Time
}

// CoordinatorDependencies bundles collaborators for the coordinator.
type CoordinatorDependencies struct {
	UnitOfWork       repository.UnitOfWork
	TicketRepo       repository.TicketRepository
	AssignmentRepo   repository.AssignmentRepository
	RepairLogRepo    repository.RepairLogRepository
	UserRepo         repository.UserRepository
	TechnicianRepo   repository.TechnicianRepository
	NotificationRepo repository.NotificationRepository
	HistoryRepo      repository.TicketHistoryRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	Config           config.LifecycleConfig
	Now              func() time.Time
}

// NewLifecycleCoordinator constructs the coordinator.
func NewLifecycleCoordinator(deps CoordinatorDependencies) *LifecycleCoordinator {
	c := &LifecycleCoordinator{
		uow:           deps.UnitOfWork,
		tickets:       deps.TicketRepo,
		assignments:   deps.AssignmentRepo,
		repairLogs:    deps.RepairLogRepo,
		users:         deps.UserRepo,
		technicians:   deps.TechnicianRepo,
		notifications: deps.NotificationRepo,
		history:       deps.HistoryRepo,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		cfg:           deps.Config,
		now:           deps.Now,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// assignmentStep mutates a locked assignment in memory. Returning an error
// aborts the transition before anything is written.
type assignmentStep func(ctx context.Context, now time.Time, t *domain.Ticket, a *domain.Assignment) error

// mutateAssignment applies step to the assignment and writes the ticket
// status the mapping table derives from the result.
func (c *LifecycleCoordinator) mutateAssignment(ctx context.Context, transition lifecycle.Transition, actor domain.Actor, assignmentID string, step assignmentStep) (*domain.Ticket, *domain.Assignment, error) {
	var (
		ticket     *domain.Ticket
		assignment *domain.Assignment
	)
	err := c.uow.WithTx(ctx, func(ctx context.Context) error {
		peek, err := c.assignments.GetByID(ctx, assignmentID)
		if err != nil {
			return storeError("assignment", assignmentID, err)
		}
		t, err := c.tickets.GetForUpdate(ctx, peek.TicketID)
		if err != nil {
			return storeError("ticket", peek.TicketID, err)
		}
		a, err := c.assignments.GetForUpdate(ctx, assignmentID)
		if err != nil {
			return storeError("assignment", assignmentID, err)
		}
		if err := lifecycle.AuthorizeOwner(transition, actor, a); err != nil {
			return err
		}

		before := stateValues(t.Status, a)
		now := c.now()
		if err := step(ctx, now, t, a); err != nil {
			return err
		}
		if err := c.assignments.Update(ctx, a); err != nil {
			return storeError("assignment", a.ID, err)
		}
		updated, err := c.setTicketStatus(ctx, t, lifecycle.TicketStatusFor(a), now)
		if err != nil {
			return err
		}
		if err := c.writeHistory(ctx, transition, actor, updated.ID, &a.ID, before, stateValues(updated.Status, a)); err != nil {
			return err
		}
		ticket, assignment = updated, a
		return nil
	})
	c.record(transition, err)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Info("transition committed",
		zap.String("transition", string(transition)),
		zap.String("ticket_id", ticket.ID),
		zap.String("assignment_id", assignment.ID),
		zap.String("actor_id", actor.UserID),
		zap.String("ticket_status", string(ticket.Status)),
		zap.String("assignment_status", string(assignment.Status)))
	return ticket, assignment, nil
}

// setTicketStatus writes next, stamping completedAt only when the ticket
// enters COMPLETED.
func (c *LifecycleCoordinator) setTicketStatus(ctx context.Context, t *domain.Ticket, next domain.TicketStatus, now time.Time) (*domain.Ticket, error) {
	completedAt := t.CompletedAt
	if next == domain.TicketStatusCompleted && t.Status != domain.TicketStatusCompleted {
		completedAt = &now
	}
	updated, err := c.tickets.SetStatus(ctx, t.ID, next, completedAt)
	if err != nil {
		return nil, storeError("ticket", t.ID, err)
	}
	return updated, nil
}

func (c *LifecycleCoordinator) writeHistory(ctx context.Context, transition lifecycle.Transition, actor domain.Actor, ticketID string, assignmentID *string, oldValue, newValue map[string]any) error {
	entry := &domain.TicketHistory{
		TicketID:     ticketID,
		AssignmentID: assignmentID,
		ActorID:      actor.UserID,
		Transition:   string(transition),
		OldValue:     oldValue,
		NewValue:     newValue,
	}
	if err := c.history.Create(ctx, entry); err != nil {
		return storeError("ticket history", ticketID, err)
	}
	return nil
}

func (c *LifecycleCoordinator) authorize(transition lifecycle.Transition, actor domain.Actor) error {
	if err := lifecycle.Authorize(transition, actor); err != nil {
		c.record(transition, err)
		return err
	}
	return nil
}

func (c *LifecycleCoordinator) record(transition lifecycle.Transition, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	c.metrics.RecordTransition(string(transition), outcome)
}

// publish emits a committed event. Handler failures never reach the caller.
func (c *LifecycleCoordinator) publish(ctx context.Context, event events.Event) {
	if c.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}
	if err := c.dispatcher.Publish(ctx, event); err != nil {
		c.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func stateValues(status domain.TicketStatus, a *domain.Assignment) map[string]any {
	values := map[string]any{"ticket_status": string(status)}
	if a != nil {
		values["assignment_status"] = string(a.Status)
		if v := a.Verification(); v != "" {
			values["verification_status"] = string(v)
		}
	}
	return values
}

// storeError maps repository failures onto domain errors. Domain errors
// raised by a store pass through unchanged.
func storeError(resource, id string, err error) error {
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", map[string]any{"id": id})
	default:
		return apperrors.NewPersistenceError(err)
	}
}

func generateTicketNumber() string {
	return "MT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func canReview(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleSupervisor
}

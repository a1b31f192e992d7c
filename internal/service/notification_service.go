package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

// NotificationService turns lifecycle events into notifications for the
// reporter, the technician and the reviewer pool.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   *NotificationDispatcher
	users      repository.UserRepository
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier *NotificationDispatcher, users repository.UserRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		users:      users,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventAssignmentCreated, n.handleAssignmentCreated)
	n.dispatcher.Subscribe(events.EventAssignmentAccepted, n.handleAssignmentAccepted)
	n.dispatcher.Subscribe(events.EventWorkStarted, n.handleWorkStarted)
	n.dispatcher.Subscribe(events.EventEvidenceSubmitted, n.handleEvidenceSubmitted)
	n.dispatcher.Subscribe(events.EventVerificationApproved, n.handleApproved)
	n.dispatcher.Subscribe(events.EventVerificationRejected, n.handleRejected)
	n.dispatcher.Subscribe(events.EventRepairLogged, n.handleRepairLogged)
	n.dispatcher.Subscribe(events.EventTicketCancelled, n.handleTicketCancelled)
	n.dispatcher.Subscribe(events.EventTicketReopened, n.handleTicketReopened)
	n.dispatcher.Subscribe(events.EventTechnicianDecommissioned, n.handleTechnicianDecommissioned)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketPayload)
	if !ok {
		return n.unexpected(event)
	}
	admins, err := n.userIDs(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	n.notifier.NotifyMany(ctx, admins,
		fmt.Sprintf("New ticket %s: %s", p.Ticket.TicketNumber, p.Ticket.Subject),
		domain.NotificationTicket)
	return nil
}

func (n *NotificationService) handleAssignmentCreated(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AssignmentPayload)
	if !ok {
		return n.unexpected(event)
	}
	n.notifier.Notify(ctx, p.Assignment.TechnicianID,
		fmt.Sprintf("You have been assigned ticket %s: %s", p.Ticket.TicketNumber, p.Ticket.Subject),
		domain.NotificationAssignment)
	n.notifier.Notify(ctx, p.Ticket.ReporterID,
		fmt.Sprintf("Ticket %s has been assigned to a technician", p.Ticket.TicketNumber),
		domain.NotificationTicket)
	return nil
}

func (n *NotificationService) handleAssignmentAccepted(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AssignmentPayload)
	if !ok {
		return n.unexpected(event)
	}
	n.notifier.Notify(ctx, p.Ticket.ReporterID,
		fmt.Sprintf("A technician accepted ticket %s", p.Ticket.TicketNumber),
		domain.NotificationInfo)
	return nil
}

func (n *NotificationService) handleWorkStarted(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AssignmentPayload)
	if !ok {
		return n.unexpected(event)
	}
	n.notifier.Notify(ctx, p.Ticket.ReporterID,
		fmt.Sprintf("Work has started on ticket %s", p.Ticket.TicketNumber),
		domain.NotificationTicket)
	return nil
}

func (n *NotificationService) handleEvidenceSubmitted(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AssignmentPayload)
	if !ok {
		return n.unexpected(event)
	}
	if p.Assignment.Verification() == domain.VerificationApproved {
		n.notifyCompleted(ctx, p)
		return nil
	}
	reviewers, err := n.userIDs(ctx, domain.RoleAdmin, domain.RoleSupervisor)
	if err != nil {
		return err
	}
	n.notifier.NotifyMany(ctx, reviewers,
		fmt.Sprintf("Ticket %s is awaiting verification", p.Ticket.TicketNumber),
		domain.NotificationWarning)
	return nil
}

func (n *NotificationService) handleApproved(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AssignmentPayload)
	if !ok {
		return n.unexpected(event)
	}
	n.notifyCompleted(ctx, p)
	return nil
}

func (n *NotificationService) handleRejected(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.AssignmentPayload)
	if !ok {
		return n.unexpected(event)
	}
	msg := fmt.Sprintf("Work on ticket %s was rejected", p.Ticket.TicketNumber)
	if p.Reason != "" {
		msg += ": " + p.Reason
	}
	n.notifier.Notify(ctx, p.Assignment.TechnicianID, msg, domain.NotificationWarning)
	n.notifier.Notify(ctx, p.Ticket.ReporterID,
		fmt.Sprintf("Ticket %s needs further work", p.Ticket.TicketNumber),
		domain.NotificationInfo)
	return nil
}

func (n *NotificationService) handleRepairLogged(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.RepairLoggedPayload)
	if !ok {
		return n.unexpected(event)
	}
	if p.Log.Status != domain.RepairLogNeedParts {
		return nil
	}
	reviewers, err := n.userIDs(ctx, domain.RoleAdmin, domain.RoleSupervisor)
	if err != nil {
		return err
	}
	n.notifier.NotifyMany(ctx, reviewers,
		fmt.Sprintf("Ticket %s is waiting for parts", p.Ticket.TicketNumber),
		domain.NotificationWarning)
	return nil
}

func (n *NotificationService) handleTicketCancelled(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketPayload)
	if !ok {
		return n.unexpected(event)
	}
	msg := fmt.Sprintf("Ticket %s was cancelled", p.Ticket.TicketNumber)
	if p.Reason != "" {
		msg += ": " + p.Reason
	}
	recipients := []string{p.Ticket.ReporterID}
	if p.Assignment != nil {
		recipients = append(recipients, p.Assignment.TechnicianID)
	}
	n.notifier.NotifyMany(ctx, recipients, msg, domain.NotificationInfo)
	return nil
}

func (n *NotificationService) handleTicketReopened(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TicketPayload)
	if !ok {
		return n.unexpected(event)
	}
	n.notifier.Notify(ctx, p.Ticket.ReporterID,
		fmt.Sprintf("Ticket %s was reopened", p.Ticket.TicketNumber),
		domain.NotificationInfo)
	return nil
}

func (n *NotificationService) handleTechnicianDecommissioned(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.TechnicianDecommissionedPayload)
	if !ok {
		return n.unexpected(event)
	}
	if len(p.ResetTickets) == 0 {
		return nil
	}
	admins, err := n.userIDs(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	n.notifier.NotifyMany(ctx, admins,
		fmt.Sprintf("Technician removed; %d ticket(s) returned to the queue", len(p.ResetTickets)),
		domain.NotificationSystem)
	return nil
}

func (n *NotificationService) notifyCompleted(ctx context.Context, p events.AssignmentPayload) {
	n.notifier.NotifyMany(ctx, []string{p.Assignment.TechnicianID, p.Ticket.ReporterID},
		fmt.Sprintf("Ticket %s has been completed", p.Ticket.TicketNumber),
		domain.NotificationSuccess)
}

func (n *NotificationService) userIDs(ctx context.Context, roles ...domain.Role) ([]string, error) {
	users, err := n.users.ListActiveByRoles(ctx, roles...)
	if err != nil {
		n.logger.Warn("recipient lookup failed", zap.Error(err))
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (n *NotificationService) unexpected(event events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}

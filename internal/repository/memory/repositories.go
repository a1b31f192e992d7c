package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

type ticketRepo struct{ s *Store }

func (r *ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	defer r.s.lock(ctx)()
	for _, existing := range r.s.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return repository.ErrDuplicate
		}
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = r.s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (r *ticketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) SetStatus(ctx context.Context, id string, status domain.TicketStatus, completedAt *time.Time) (*domain.Ticket, error) {
	defer r.s.lock(ctx)()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !lifecycle.CanMoveTicket(t.Status, status) {
		return nil, apperrors.NewInvalidTransition(string(t.Status), string(status), map[string]any{"ticket_id": id})
	}
	t.Status = status
	t.CompletedAt = nil
	if status == domain.TicketStatusCompleted {
		stamp := r.s.now()
		if completedAt != nil {
			stamp = *completedAt
		}
		t.CompletedAt = &stamp
	}
	t.UpdatedAt = r.s.now()
	return cloneTicket(t), nil
}

func (r *ticketRepo) ListByReporter(ctx context.Context, reporterID string, limit, offset int) ([]domain.Ticket, error) {
	defer r.s.lock(ctx)()
	var result []domain.Ticket
	for _, t := range r.s.tickets {
		if t.ReporterID == reporterID {
			result = append(result, *cloneTicket(t))
		}
	}
	sortByCreated(result, func(t domain.Ticket) time.Time { return t.UpdatedAt }, true)
	return page(result, limit, offset, 20), nil
}

type assignmentRepo struct{ s *Store }

func (r *assignmentRepo) Create(ctx context.Context, a *domain.Assignment) error {
	defer r.s.lock(ctx)()
	if a.Active() {
		for _, existing := range r.s.assignments {
			if existing.TicketID == a.TicketID && existing.Active() {
				return repository.ErrDuplicate
			}
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	r.s.assignments[a.ID] = a.Clone()
	return nil
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *assignmentRepo) GetForUpdate(ctx context.Context, id string) (*domain.Assignment, error) {
	return r.GetByID(ctx, id)
}

func (r *assignmentRepo) GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Assignment, error) {
	defer r.s.lock(ctx)()
	for _, a := range r.s.assignments {
		if a.TicketID == ticketID && a.Active() {
			return a.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *assignmentRepo) Update(ctx context.Context, a *domain.Assignment) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.assignments[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = r.s.now()
	r.s.assignments[a.ID] = a.Clone()
	return nil
}

func (r *assignmentRepo) ListByTechnician(ctx context.Context, technicianID string) ([]domain.Assignment, error) {
	defer r.s.lock(ctx)()
	var result []domain.Assignment
	for _, a := range r.s.assignments {
		if a.TechnicianID == technicianID {
			result = append(result, *a.Clone())
		}
	}
	sortByCreated(result, func(a domain.Assignment) time.Time { return a.CreatedAt }, true)
	return result, nil
}

func (r *assignmentRepo) DeleteByTechnician(ctx context.Context, technicianID string) (int64, error) {
	defer r.s.lock(ctx)()
	var deleted int64
	for id, a := range r.s.assignments {
		if a.TechnicianID == technicianID {
			delete(r.s.assignments, id)
			deleted++
		}
	}
	return deleted, nil
}

type repairLogRepo struct{ s *Store }

func (r *repairLogRepo) Create(ctx context.Context, log *domain.RepairLog) error {
	defer r.s.lock(ctx)()
	log.ID = uuid.NewString()
	log.CreatedAt = r.s.now()
	cp := *log
	cp.Attachments = append([]string(nil), log.Attachments...)
	r.s.repairLogs = append(r.s.repairLogs, &cp)
	return nil
}

func (r *repairLogRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]domain.RepairLog, error) {
	defer r.s.lock(ctx)()
	var result []domain.RepairLog
	for _, log := range r.s.repairLogs {
		if log.AssignmentID == assignmentID {
			cp := *log
			cp.Attachments = append([]string(nil), log.Attachments...)
			result = append(result, cp)
		}
	}
	return result, nil
}

func (r *repairLogRepo) DeleteByTechnician(ctx context.Context, technicianID string) (int64, error) {
	defer r.s.lock(ctx)()
	kept := r.s.repairLogs[:0:0]
	var deleted int64
	for _, log := range r.s.repairLogs {
		owner := log.TechnicianID == technicianID
		if a, ok := r.s.assignments[log.AssignmentID]; ok && a.TechnicianID == technicianID {
			owner = true
		}
		if owner {
			deleted++
			continue
		}
		kept = append(kept, log)
	}
	r.s.repairLogs = kept
	return deleted, nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	defer r.s.lock(ctx)()
	n.ID = uuid.NewString()
	n.CreatedAt = r.s.now()
	cp := *n
	r.s.notifications[n.ID] = &cp
	return nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	defer r.s.lock(ctx)()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	defer r.s.lock(ctx)()
	var result []domain.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		result = append(result, *n)
	}
	sortByCreated(result, func(n domain.Notification) time.Time { return n.CreatedAt }, true)
	return page(result, limit, 0, 50), nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()
	n, ok := r.s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (r *notificationRepo) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	defer r.s.lock(ctx)()
	var deleted int64
	for id, n := range r.s.notifications {
		if n.UserID == userID {
			delete(r.s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

type userRepo struct{ s *Store }

func (r *userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) ListActiveByRoles(ctx context.Context, roles ...domain.Role) ([]domain.User, error) {
	defer r.s.lock(ctx)()
	wanted := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		wanted[role] = struct{}{}
	}
	var result []domain.User
	for _, u := range r.s.users {
		if _, ok := wanted[u.Role]; ok && u.Active {
			result = append(result, *u)
		}
	}
	sortByCreated(result, func(u domain.User) time.Time { return u.CreatedAt }, false)
	return result, nil
}

type technicianRepo struct{ s *Store }

func (r *technicianRepo) GetByUserID(ctx context.Context, userID string) (*domain.TechnicianProfile, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.technicians[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetForUpdate needs no row lock; WithTx already holds the store lock.
func (r *technicianRepo) GetForUpdate(ctx context.Context, userID string) (*domain.TechnicianProfile, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *technicianRepo) Delete(ctx context.Context, userID string) (int64, error) {
	defer r.s.lock(ctx)()
	if _, ok := r.s.technicians[userID]; !ok {
		return 0, nil
	}
	delete(r.s.technicians, userID)
	return 1, nil
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(ctx context.Context, history *domain.TicketHistory) error {
	defer r.s.lock(ctx)()
	history.ID = uuid.NewString()
	history.CreatedAt = r.s.now()
	cp := *history
	r.s.history = append(r.s.history, &cp)
	return nil
}

func (r *historyRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	defer r.s.lock(ctx)()
	var result []domain.TicketHistory
	for _, h := range r.s.history {
		if h.TicketID == ticketID {
			result = append(result, *h)
		}
	}
	return result, nil
}

func page[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

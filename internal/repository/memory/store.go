// Package memory is an in-process implementation of the repository
// interfaces. It backs the service when no Postgres DSN is configured and in
// tests. A unit of work holds the store lock for its whole duration and
// restores a snapshot when it fails, so it serializes like row locks would.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
)

type txKey struct{}

// Store holds every table in memory.
type Store struct {
	mu            sync.Mutex
	tickets       map[string]*domain.Ticket
	assignments   map[string]*domain.Assignment
	repairLogs    []*domain.RepairLog
	notifications map[string]*domain.Notification
	users         map[string]*domain.User
	technicians   map[string]*domain.TechnicianProfile
	history       []*domain.TicketHistory
	now           func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		tickets:       map[string]*domain.Ticket{},
		assignments:   map[string]*domain.Assignment{},
		notifications: map[string]*domain.Notification{},
		users:         map[string]*domain.User{},
		technicians:   map[string]*domain.TechnicianProfile{},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithTx implements repository.UnitOfWork. An error or panic from fn
// restores the state taken before fn ran.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, true))
}

// lock acquires the store lock unless ctx already runs inside WithTx.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	tickets       map[string]*domain.Ticket
	assignments   map[string]*domain.Assignment
	repairLogs    []*domain.RepairLog
	notifications map[string]*domain.Notification
	technicians   map[string]*domain.TechnicianProfile
	history       []*domain.TicketHistory
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		tickets:       make(map[string]*domain.Ticket, len(s.tickets)),
		assignments:   make(map[string]*domain.Assignment, len(s.assignments)),
		repairLogs:    append([]*domain.RepairLog(nil), s.repairLogs...),
		notifications: make(map[string]*domain.Notification, len(s.notifications)),
		technicians:   make(map[string]*domain.TechnicianProfile, len(s.technicians)),
		history:       append([]*domain.TicketHistory(nil), s.history...),
	}
	for id, t := range s.tickets {
		snap.tickets[id] = cloneTicket(t)
	}
	for id, a := range s.assignments {
		snap.assignments[id] = a.Clone()
	}
	for id, n := range s.notifications {
		cp := *n
		snap.notifications[id] = &cp
	}
	for id, p := range s.technicians {
		cp := *p
		snap.technicians[id] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.tickets = snap.tickets
	s.assignments = snap.assignments
	s.repairLogs = snap.repairLogs
	s.notifications = snap.notifications
	s.technicians = snap.technicians
	s.history = snap.history
}

// AddUser inserts or replaces an account.
func (s *Store) AddUser(user domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
		user.UpdatedAt = user.CreatedAt
	}
	s.users[user.ID] = &user
	cp := user
	return &cp
}

// AddTechnician inserts a technician account together with its profile.
func (s *Store) AddTechnician(user domain.User, specialty string) *domain.User {
	user.Role = domain.RoleTechnician
	created := s.AddUser(user)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.technicians[created.ID] = &domain.TechnicianProfile{
		UserID:    created.ID,
		Specialty: specialty,
		Available: true,
		CreatedAt: s.now(),
	}
	return created
}

// SeedDemoUsers creates one account per role with fixed ids.
func (s *Store) SeedDemoUsers() []domain.User {
	admin := s.AddUser(domain.User{ID: "00000000-0000-0000-0000-000000000001", Name: "Admin", Email: "admin@example.com", Role: domain.RoleAdmin, Active: true})
	supervisor := s.AddUser(domain.User{ID: "00000000-0000-0000-0000-000000000002", Name: "Supervisor", Email: "supervisor@example.com", Role: domain.RoleSupervisor, Active: true})
	tech := s.AddTechnician(domain.User{ID: "00000000-0000-0000-0000-000000000003", Name: "Technician", Email: "tech@example.com", Active: true}, "general")
	staff := s.AddUser(domain.User{ID: "00000000-0000-0000-0000-000000000004", Name: "Staff", Email: "staff@example.com", Role: domain.RoleStaff, Active: true})
	return []domain.User{*admin, *supervisor, *tech, *staff}
}

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s} }

// Assignments returns the assignment repository view.
func (s *Store) Assignments() repository.AssignmentRepository { return &assignmentRepo{s} }

// RepairLogs returns the repair log repository view.
func (s *Store) RepairLogs() repository.RepairLogRepository { return &repairLogRepo{s} }

// Notifications returns the notification repository view.
func (s *Store) Notifications() repository.NotificationRepository { return &notificationRepo{s} }

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Technicians returns the technician repository view.
func (s *Store) Technicians() repository.TechnicianRepository { return &technicianRepo{s} }

// History returns the ticket history repository view.
func (s *Store) History() repository.TicketHistoryRepository { return &historyRepo{s} }

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	cp := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		cp.CompletedAt = &at
	}
	return &cp
}

func sortByCreated[T any](items []T, created func(T) time.Time, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return created(items[i]).After(created(items[j]))
		}
		return created(items[i]).Before(created(items[j]))
	})
}

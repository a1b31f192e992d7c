package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/repository/memory"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	channels []string
	err      error
}

func (b *recordingBroadcaster) Publish(_ context.Context, channel string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels = append(b.channels, channel)
	return b.err
}

type harness struct {
	store       *memory.Store
	coord       *LifecycleCoordinator
	notifier    *NotificationDispatcher
	metrics     *observability.Metrics
	broadcaster *recordingBroadcaster

	admin      domain.Actor
	supervisor domain.Actor
	tech       domain.Actor
	tech2      domain.Actor
	staff      domain.Actor
	staff2     domain.Actor
}

type harnessOption func(*repoSet, *config.Config)

type repoSet struct {
	tickets       repository.TicketRepository
	assignments   repository.AssignmentRepository
	notifications repository.NotificationRepository
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	store := memory.NewStore()
	seeded := store.SeedDemoUsers()
	tech2 := store.AddTechnician(domain.User{Name: "Second Tech", Email: "tech2@example.com", Active: true}, "electrical")
	staff2 := store.AddUser(domain.User{Name: "Other Staff", Email: "staff2@example.com", Role: domain.RoleStaff, Active: true})

	cfg := &config.Config{
		Notification: config.NotificationConfig{BroadcastEnabled: true, ChannelPrefix: "notifications"},
		Lifecycle:    config.LifecycleConfig{RequireRejectReason: true},
	}
	repos := &repoSet{
		tickets:       store.Tickets(),
		assignments:   store.Assignments(),
		notifications: store.Notifications(),
	}
	for _, opt := range opts {
		opt(repos, cfg)
	}

	metrics := observability.NewMetrics()
	broadcaster := &recordingBroadcaster{}
	dispatcher := events.NewInMemoryDispatcher()
	notifier := NewNotificationDispatcher(repos.notifications, broadcaster, nil, metrics, cfg.Notification)
	NewNotificationService(dispatcher, notifier, store.Users(), nil).RegisterHandlers()

	coord := NewLifecycleCoordinator(CoordinatorDependencies{
		UnitOfWork:       store,
		TicketRepo:       repos.tickets,
		AssignmentRepo:   repos.assignments,
		RepairLogRepo:    store.RepairLogs(),
		UserRepo:         store.Users(),
		TechnicianRepo:   store.Technicians(),
		NotificationRepo: repos.notifications,
		HistoryRepo:      store.History(),
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Config:           cfg.Lifecycle,
	})

	actor := func(u domain.User) domain.Actor { return domain.Actor{UserID: u.ID, Role: u.Role} }
	return &harness{
		store:       store,
		coord:       coord,
		notifier:    notifier,
		metrics:     metrics,
		broadcaster: broadcaster,
		admin:       actor(seeded[0]),
		supervisor:  actor(seeded[1]),
		tech:        actor(seeded[2]),
		staff:       actor(seeded[3]),
		tech2:       actor(*tech2),
		staff2:      actor(*staff2),
	}
}

func (h *harness) newTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := h.coord.CreateTicket(context.Background(), h.staff, CreateTicketInput{
		Category:    "HVAC",
		Subject:     "Air conditioner leaking",
		Description: "Water dripping from the indoor unit",
		Location:    "Building A, room 204",
		Priority:    domain.TicketPriorityHigh,
	})
	require.NoError(t, err)
	return ticket
}

func (h *harness) assigned(t *testing.T, needsVerification bool) (*domain.Ticket, *domain.Assignment) {
	t.Helper()
	ticket := h.newTicket(t)
	a, err := h.coord.Assign(context.Background(), h.admin, ticket.ID, h.tech.UserID, needsVerification)
	require.NoError(t, err)
	return ticket, a
}

func (h *harness) ticket(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := h.store.Tickets().GetByID(context.Background(), id)
	require.NoError(t, err)
	return ticket
}

func (h *harness) assignment(t *testing.T, id string) *domain.Assignment {
	t.Helper()
	a, err := h.store.Assignments().GetByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (h *harness) requireConsistent(t *testing.T, ticketID, assignmentID string) {
	t.Helper()
	ticket := h.ticket(t, ticketID)
	a := h.assignment(t, assignmentID)
	require.Truef(t, lifecycle.Consistent(ticket, a),
		"ticket %s inconsistent with assignment %s/%s", ticket.Status, a.Status, a.Verification())
}

func (h *harness) notifications(t *testing.T, userID string, typ domain.NotificationType) []domain.Notification {
	t.Helper()
	all, err := h.store.Notifications().ListByUser(context.Background(), userID, false, 1000)
	require.NoError(t, err)
	var out []domain.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func containsMessage(items []domain.Notification, fragment string) bool {
	for _, n := range items {
		if strings.Contains(n.Message, fragment) {
			return true
		}
	}
	return false
}

// failingTickets fails SetStatus when the target status matches failOn.
type failingTickets struct {
	repository.TicketRepository
	failOn domain.TicketStatus
	err    error
}

func (f *failingTickets) SetStatus(ctx context.Context, id string, status domain.TicketStatus, completedAt *time.Time) (*domain.Ticket, error) {
	if status == f.failOn {
		return nil, f.err
	}
	return f.TicketRepository.SetStatus(ctx, id, status, completedAt)
}

type failingNotifications struct {
	repository.NotificationRepository
	err error
}

func (f *failingNotifications) Create(context.Context, *domain.Notification) error {
	return f.err
}

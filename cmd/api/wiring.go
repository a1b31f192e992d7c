package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/persistence"
	"github.com/spec-kit/maintenance-service/internal/repository"
	"github.com/spec-kit/maintenance-service/internal/repository/memory"
	"github.com/spec-kit/maintenance-service/internal/service"
	"github.com/spec-kit/maintenance-service/internal/worker"
)

// stores is the persistence backend selected at startup.
type stores struct {
	uow           repository.UnitOfWork
	tickets       repository.TicketRepository
	assignments   repository.AssignmentRepository
	repairLogs    repository.RepairLogRepository
	users         repository.UserRepository
	technicians   repository.TechnicianRepository
	notifications repository.NotificationRepository
	history       repository.TicketHistoryRepository
}

func newStores(pg *persistence.Postgres, cfg *config.Config, logger *zap.Logger) stores {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return stores{
			uow:           persistence.NewTxManager(pool),
			tickets:       repository.NewTicketRepository(pool),
			assignments:   repository.NewAssignmentRepository(pool),
			repairLogs:    repository.NewRepairLogRepository(pool),
			users:         repository.NewUserRepository(pool),
			technicians:   repository.NewTechnicianRepository(pool),
			notifications: repository.NewNotificationRepository(pool),
			history:       repository.NewTicketHistoryRepository(pool),
		}
	}

	mem := memory.NewStore()
	if cfg.Lifecycle.SeedDemoUsers {
		for _, u := range mem.SeedDemoUsers() {
			logger.Info("seeded demo user", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
		}
	}
	return stores{
		uow:           mem,
		tickets:       mem.Tickets(),
		assignments:   mem.Assignments(),
		repairLogs:    mem.RepairLogs(),
		users:         mem.Users(),
		technicians:   mem.Technicians(),
		notifications: mem.Notifications(),
		history:       mem.History(),
	}
}

// container holds the collaborators shared by every command.
type container struct {
	cfg         *config.Config
	logger      *zap.Logger
	metrics     *observability.Metrics
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	stores      stores
	coordinator *service.LifecycleCoordinator
	notifier    *service.NotificationDispatcher
}

func newContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger, withRedis bool) (*container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	rt := &container{
		cfg:      cfg,
		logger:   logger,
		metrics:  observability.NewMetrics(),
		postgres: pg,
	}
	var broadcaster service.Broadcaster
	if withRedis && cfg.Notification.BroadcastEnabled {
		rt.redis = persistence.NewRedis(cfg.Redis, logger)
		broadcaster = rt.redis
	}

	rt.stores = newStores(pg, cfg, logger)
	dispatcher := events.NewInMemoryDispatcher()
	rt.notifier = service.NewNotificationDispatcher(rt.stores.notifications, broadcaster, logger, rt.metrics, cfg.Notification)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, rt.notifier, rt.stores.users, logger))

	rt.coordinator = service.NewLifecycleCoordinator(service.CoordinatorDependencies{
		UnitOfWork:       rt.stores.uow,
		TicketRepo:       rt.stores.tickets,
		AssignmentRepo:   rt.stores.assignments,
		RepairLogRepo:    rt.stores.repairLogs,
		UserRepo:         rt.stores.users,
		TechnicianRepo:   rt.stores.technicians,
		NotificationRepo: rt.stores.notifications,
		HistoryRepo:      rt.stores.history,
		Dispatcher:       dispatcher,
		Logger:           logger,
		Metrics:          rt.metrics,
		Config:           cfg.Lifecycle,
	})
	return rt, nil
}

func (rt *container) close() {
	rt.redis.Close()
	rt.postgres.Close()
}

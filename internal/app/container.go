// Package app assembles the service graph shared by the API server and the
// operator CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scrubbe-dev/incident-service/internal/auth"
	"github.com/scrubbe-dev/incident-service/internal/clock"
	"github.com/scrubbe-dev/incident-service/internal/config"
	"github.com/scrubbe-dev/incident-service/internal/events"
	"github.com/scrubbe-dev/incident-service/internal/observability"
	"github.com/scrubbe-dev/incident-service/internal/persistence"
	"github.com/scrubbe-dev/incident-service/internal/repository"
	"github.com/scrubbe-dev/incident-service/internal/risk"
	"github.com/scrubbe-dev/incident-service/internal/service"
	"github.com/scrubbe-dev/incident-service/internal/sla"
	"github.com/scrubbe-dev/incident-service/internal/worker"
)

// Container holds the long-lived collaborators.
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Postgres    *persistence.Postgres
	Redis       *persistence.Redis
	Metrics     *observability.Metrics
	Members     repository.MemberRepository
	Tokens      *auth.TokenManager
	Incidents   *service.IncidentService
	Escalations *service.EscalationService

	notifyQueue *worker.NotificationWorker
}

const notifyDrainTimeout = 5 * time.Second

// New connects to the stores, applies migrations when enabled and wires the services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	policy, err := sla.Load(cfg.SLA)
	if err != nil {
		return nil, err
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}
	redis := persistence.NewRedis(ctx, cfg.Redis, logger)

	pool := pg.PoolHandle()
	incidentRepo := repository.NewIncidentRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	metrics := observability.NewMetrics()
	clk := clock.System()

	var oracle risk.Oracle = risk.NewRuleOracle()
	if cfg.Risk.OracleURL != "" {
		oracle = risk.NewHTTPOracle(cfg.Risk)
		logger.Info("risk oracle configured", zap.String("url", cfg.Risk.OracleURL))
	}

	notifyQueue := worker.NewNotificationWorker(events.NewInMemoryDispatcher(), cfg.Notification.QueueSize, logger.Named("notify"))
	notifications := service.NewNotificationService(notifyQueue, logger.Named("notify"), cfg.Notification, clk)
	worker.StartNotificationWorker(notifyQueue, notifications, logger.Named("notify"))

	incidents := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo:   incidentRepo,
		BreachRepo:     repository.NewBreachLogRepository(pool),
		CommentRepo:    repository.NewCommentRepository(pool),
		ResolutionRepo: repository.NewResolutionRepository(pool),
		Policy:         policy,
		Oracle:         oracle,
		Notifier:       notifications,
		Assignees:      service.NewAssigneePolicy(memberRepo, cfg.Integration.DefaultAssigneeEmail),
		IDMaxAttempts:  cfg.Engine.IDMaxAttempts,
		Clock:          clk,
		Metrics:        metrics,
		Logger:         logger.Named("engine"),
		StoreTimeout:   cfg.Engine.StoreTimeout(),
		RiskTimeout:    cfg.Risk.Timeout(),
	})
	escalations := service.NewEscalationService(service.EscalationDependencies{
		IncidentRepo:   incidentRepo,
		EscalationRepo: repository.NewEscalationRepository(pool),
		MemberRepo:     memberRepo,
		Notifier:       notifications,
		Clock:          clk,
		Logger:         logger.Named("escalation"),
		StoreTimeout:   cfg.Engine.StoreTimeout(),
	})

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Postgres:    pg,
		Redis:       redis,
		Metrics:     metrics,
		Members:     memberRepo,
		Tokens:      auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		Incidents:   incidents,
		Escalations: escalations,
		notifyQueue: notifyQueue,
	}, nil
}

// Sweeper builds the breach sweeper over the shared Redis coordinator.
func (c *Container) Sweeper() *worker.BreachSweeper {
	return worker.NewBreachSweeper(c.Incidents, worker.NewRedisCoordinator(c.Redis.Client),
		c.Config.Sweep.Interval(), c.Config.Sweep.BatchSize, c.Logger.Named("sweeper"))
}

// Close drains pending notifications and releases store connections.
func (c *Container) Close() {
	c.notifyQueue.Stop(notifyDrainTimeout)
	c.Redis.Close()
	c.Postgres.Close()
}

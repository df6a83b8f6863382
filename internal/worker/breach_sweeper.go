package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scrubbe-dev/incident-service/internal/service"
)

// OverdueSweeper is the engine entry point the sweeper schedules.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, limit int, claim service.ClaimFunc) (int, error)
}

// BreachSweeper periodically notifies about tickets that silently crossed an
// SLA deadline. Only the elected leader sweeps.
type BreachSweeper struct {
	engine      OverdueSweeper
	coordinator SweepCoordinator
	interval    time.Duration
	batchSize   int
	logger      *zap.Logger
}

// NewBreachSweeper creates the sweeper.
func NewBreachSweeper(engine OverdueSweeper, coordinator SweepCoordinator, interval time.Duration, batchSize int, logger *zap.Logger) *BreachSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BreachSweeper{
		engine:      engine,
		coordinator: coordinator,
		interval:    interval,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *BreachSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("breach sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("breach sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Warn("breach sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs one sweep when this instance holds the leader lock and
// returns the number of notifications sent.
func (s *BreachSweeper) RunOnce(ctx context.Context) (int, error) {
	leader, err := s.coordinator.AcquireLeader(ctx, s.interval)
	if err != nil {
		return 0, err
	}
	if !leader {
		s.logger.Debug("breach sweep skipped; another instance holds the lock")
		return 0, nil
	}

	sent, err := s.engine.SweepOverdue(ctx, s.batchSize, s.coordinator.Claim)
	if err != nil {
		return sent, err
	}
	if sent > 0 {
		s.logger.Info("breach notifications sent", zap.Int("count", sent))
	}
	return sent, nil
}

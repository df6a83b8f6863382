package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

const (
	sweepLockKey     = "incident:sweep:lock"
	sweepNotifiedKey = "incident:sweep:notified:%s:%s"
	sweepNotifiedTTL = 7 * 24 * time.Hour
)

// SweepCoordinator elects one sweeping instance and deduplicates breach
// notifications across runs.
type SweepCoordinator interface {
	AcquireLeader(ctx context.Context, ttl time.Duration) (bool, error)
	Claim(ctx context.Context, ticketID string, slaType domain.SLAType) (bool, error)
}

// RedisCoordinator implements SweepCoordinator with SET NX keys.
type RedisCoordinator struct {
	client redis.Cmdable
	token  string
}

// NewRedisCoordinator creates a coordinator with a random instance token.
func NewRedisCoordinator(client redis.Cmdable) *RedisCoordinator {
	return &RedisCoordinator{client: client, token: uuid.NewString()}
}

// AcquireLeader takes or renews the sweep lock for ttl.
func (c *RedisCoordinator) AcquireLeader(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, sweepLockKey, c.token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if ok {
		return true, nil
	}

	holder, err := c.client.Get(ctx, sweepLockKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read sweep lock: %w", err)
	}
	if holder != c.token {
		return false, nil
	}
	if err := c.client.PExpire(ctx, sweepLockKey, ttl).Err(); err != nil {
		return false, fmt.Errorf("renew sweep lock: %w", err)
	}
	return true, nil
}

// Claim reports true the first time a ticket and SLA type pair is seen.
func (c *RedisCoordinator) Claim(ctx context.Context, ticketID string, slaType domain.SLAType) (bool, error) {
	key := fmt.Sprintf(sweepNotifiedKey, ticketID, slaType)
	ok, err := c.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), sweepNotifiedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim breach notification: %w", err)
	}
	return ok, nil
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/payflow/pkg/logging"
)

const defaultInFlightTTL = 5 * time.Minute

// RedisTracker coordinates in-flight subscriptions across scheduler
// instances with SET NX. The TTL bounds how long a crashed worker can
// keep a subscription locked out.
type RedisTracker struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisTracker creates a tracker on client. ttl <= 0 uses the
// 5 minute default.
func NewRedisTracker(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisTracker {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = defaultInFlightTTL
	}
	return &RedisTracker{
		redis:  client,
		ttl:    ttl,
		logger: logger,
	}
}

func (t *RedisTracker) key(id uuid.UUID) string {
	return "payflow:inflight:" + id.String()
}

func (t *RedisTracker) TryAcquire(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := t.redis.SetNX(ctx, t.key(id), "1", t.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("scheduler: acquire in-flight marker: %w", err)
	}
	return ok, nil
}

func (t *RedisTracker) Release(ctx context.Context, id uuid.UUID) error {
	if err := t.redis.Del(ctx, t.key(id)).Err(); err != nil {
		t.logger.Error("failed to release in-flight marker",
			"subscription_id", id,
			"error", err,
		)
		return fmt.Errorf("scheduler: release in-flight marker: %w", err)
	}
	return nil
}

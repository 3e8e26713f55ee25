package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LeaderLease serializes sweeps across worker replicas with a Redis
// SET NX PX lease. Only the holder runs; everyone else waits for the
// lease to lapse.
type LeaderLease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	id     string
	logger *zap.Logger
}

// NewLeaderLease builds a lease with a unique holder identity.
func NewLeaderLease(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *LeaderLease {
	return &LeaderLease{
		client: client,
		key:    key,
		ttl:    ttl,
		id:     uuid.NewString(),
		logger: logger,
	}
}

// TryAcquire claims or refreshes the lease. A Redis failure is treated
// as not-leader so two replicas never both assume leadership.
func (l *LeaderLease) TryAcquire(ctx context.Context) bool {
	ok, err := l.client.SetNX(ctx, l.key, l.id, l.ttl).Result()
	if err != nil {
		l.logger.Warn("lease acquisition failed", zap.String("key", l.key), zap.Error(err))
		return false
	}
	if ok {
		return true
	}
	holder, err := l.client.Get(ctx, l.key).Result()
	if err != nil || holder != l.id {
		return false
	}
	// Still ours from a previous tick; extend.
	if err := l.client.PExpire(ctx, l.key, l.ttl).Err(); err != nil {
		l.logger.Warn("lease refresh failed", zap.String("key", l.key), zap.Error(err))
		return false
	}
	return true
}

// Release drops the lease if this instance still holds it.
func (l *LeaderLease) Release(ctx context.Context) {
	holder, err := l.client.Get(ctx, l.key).Result()
	if err != nil || holder != l.id {
		return
	}
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		l.logger.Warn("lease release failed", zap.String("key", l.key), zap.Error(err))
	}
}

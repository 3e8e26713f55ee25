package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedClassifier memoizes classification results in Redis so that
// repeated scoring of an unchanged ticket inside the cache window does
// not hit the rate-limited backend. Cache trouble never fails a call;
// it just passes through.
type CachedClassifier struct {
	inner  Classifier
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedClassifier wraps a classifier with a Redis cache.
func NewCachedClassifier(inner Classifier, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedClassifier {
	return &CachedClassifier{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Classify checks the cache before delegating.
func (c *CachedClassifier) Classify(ctx context.Context, task string, input any) (json.RawMessage, error) {
	key, ok := c.cacheKey(task, input)
	if ok && c.client != nil {
		cached, err := c.client.Get(ctx, key).Bytes()
		if err == nil && json.Valid(cached) {
			return json.RawMessage(cached), nil
		}
	}

	result, err := c.inner.Classify(ctx, task, input)
	if err != nil {
		return nil, err
	}

	if ok && c.client != nil {
		if err := c.client.Set(ctx, key, []byte(result), c.ttl).Err(); err != nil {
			c.logger.Debug("ai cache write failed", zap.String("task", task), zap.Error(err))
		}
	}
	return result, nil
}

func (c *CachedClassifier) cacheKey(task string, input any) (string, bool) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("sla-engine:ai:%s:%s", task, hex.EncodeToString(sum[:16])), true
}

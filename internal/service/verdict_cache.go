package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/pkg/cache"
)

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// VerdictCache keeps recent validation verdicts keyed by import id. The backing store is supplied by the caller.
type VerdictCache struct {
	store   cache.Store
	ttl     time.Duration
	metrics cacheObserver
	logger  *zap.Logger
}

// NewVerdictCache constructs a verdict cache; a nil store disables caching.
func NewVerdictCache(store cache.Store, ttl time.Duration, metrics cacheObserver, logger *zap.Logger) *VerdictCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &VerdictCache{store: store, ttl: ttl, metrics: metrics, logger: logger}
}

func verdictKey(importID string) string {
	return "verdict:" + importID
}

// Get returns the cached verdict; ok is false on a miss or when the entry cannot be decoded.
func (c *VerdictCache) Get(ctx context.Context, importID string) (models.ValidationVerdict, bool) {
	if c == nil || c.store == nil {
		return models.ValidationVerdict{}, false
	}
	start := time.Now()
	data, err := c.store.Get(ctx, verdictKey(importID))
	hit := err == nil
	if c.metrics != nil {
		c.metrics.RecordCacheOperation(hit, time.Since(start))
	}
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn("verdict cache read failed", zap.String("import_id", importID), zap.Error(err))
		}
		return models.ValidationVerdict{}, false
	}
	var verdict models.ValidationVerdict
	if err := json.Unmarshal(data, &verdict); err != nil {
		c.logger.Warn("verdict cache entry corrupt", zap.String("import_id", importID), zap.Error(err))
		return models.ValidationVerdict{}, false
	}
	return verdict, true
}

// Put stores verdict with the cache TTL. Failures are logged, never returned.
func (c *VerdictCache) Put(ctx context.Context, importID string, verdict models.ValidationVerdict) {
	if c == nil || c.store == nil {
		return
	}
	data, err := json.Marshal(verdict)
	if err != nil {
		c.logger.Warn("verdict encode failed", zap.String("import_id", importID), zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, verdictKey(importID), data, c.ttl); err != nil {
		c.logger.Warn("verdict cache write failed", zap.String("import_id", importID), zap.Error(err))
	}
}

// Forget drops the cached verdict of importID.
func (c *VerdictCache) Forget(ctx context.Context, importID string) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, verdictKey(importID)); err != nil {
		c.logger.Warn("verdict cache delete failed", zap.String("import_id", importID), zap.Error(err))
	}
}

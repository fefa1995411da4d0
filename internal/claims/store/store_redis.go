package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"claimdesk/internal/claims/metrics"
	"claimdesk/internal/claims/models"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/circuit"
)

const (
	cacheKeyPrefix  = "claims:claim:"
	DefaultCacheTTL = 5 * time.Minute
)

// Backend is the store a RedisCache reads through to.
type Backend interface {
	Save(ctx context.Context, claim *models.Claim) error
	Update(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	FindAll(ctx context.Context, filter models.ClaimFilter) (*models.Page[models.ClaimSummary], error)
	Delete(ctx context.Context, claimID id.ClaimID) error
	DeleteIf(ctx context.Context, claimID id.ClaimID, guard func(*models.Claim) error) error
	Execute(ctx context.Context, claimID id.ClaimID, fn func(*models.Claim) error) (*models.Claim, error)
}

// RedisCache is a read-through cache for single-claim lookups. Writes go to the
// backend first and then drop the cached document. Listings are never cached.
// Redis failures are logged and the backend answers instead. Repeated
// failures open a breaker that stops cache reads and fills; invalidations are
// still attempted and enough successes close it again.
type RedisCache struct {
	next    Backend
	client  *redis.Client
	ttl     time.Duration
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type CacheOption func(*RedisCache)

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *RedisCache) {
		c.metrics = m
	}
}

func WithCacheBreaker(b *circuit.Breaker) CacheOption {
	return func(c *RedisCache) {
		if b != nil {
			c.breaker = b
		}
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

// NewRedisCache wraps next with a Redis read-through cache.
func NewRedisCache(next Backend, client *redis.Client, opts ...CacheOption) *RedisCache {
	c := &RedisCache{
		next:    next,
		client:  client,
		ttl:     DefaultCacheTTL,
		breaker: circuit.New("claims-cache"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(claimID id.ClaimID) string {
	return cacheKeyPrefix + claimID.String()
}

func (c *RedisCache) FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	if c.breaker.IsOpen() {
		return c.next.FindByID(ctx, claimID)
	}

	raw, err := c.client.Get(ctx, cacheKey(claimID)).Bytes()
	switch {
	case err == nil:
		c.succeeded(ctx)
		var snap models.ClaimSnapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			if claim, err := models.RehydrateClaim(snap); err == nil {
				c.recordHit()
				return claim, nil
			}
		}
		c.logger.WarnContext(ctx, "discarding unreadable cached claim", "claim_id", claimID.String())
		c.invalidate(ctx, claimID)
	case errors.Is(err, redis.Nil):
		c.succeeded(ctx)
		c.recordMiss()
	default:
		c.failed(ctx)
		c.logger.WarnContext(ctx, "claim cache read failed", "claim_id", claimID.String(), "error", err)
	}

	claim, err := c.next.FindByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, claim)
	return claim, nil
}

func (c *RedisCache) Save(ctx context.Context, claim *models.Claim) error {
	if err := c.next.Save(ctx, claim); err != nil {
		return err
	}
	c.invalidate(ctx, claim.ID())
	return nil
}

func (c *RedisCache) Update(ctx context.Context, claim *models.Claim) error {
	if err := c.next.Update(ctx, claim); err != nil {
		return err
	}
	c.invalidate(ctx, claim.ID())
	return nil
}

func (c *RedisCache) FindAll(ctx context.Context, filter models.ClaimFilter) (*models.Page[models.ClaimSummary], error) {
	return c.next.FindAll(ctx, filter)
}

func (c *RedisCache) Delete(ctx context.Context, claimID id.ClaimID) error {
	if err := c.next.Delete(ctx, claimID); err != nil {
		return err
	}
	c.invalidate(ctx, claimID)
	return nil
}

// DeleteIf runs against the backend so the guard never sees a cached copy.
func (c *RedisCache) DeleteIf(ctx context.Context, claimID id.ClaimID, guard func(*models.Claim) error) error {
	if err := c.next.DeleteIf(ctx, claimID, guard); err != nil {
		return err
	}
	c.invalidate(ctx, claimID)
	return nil
}

// Execute always runs against the backend so the lock covers fresh data.
func (c *RedisCache) Execute(ctx context.Context, claimID id.ClaimID, fn func(*models.Claim) error) (*models.Claim, error) {
	claim, err := c.next.Execute(ctx, claimID, fn)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, claimID)
	return claim, nil
}

func (c *RedisCache) store(ctx context.Context, claim *models.Claim) {
	if c.breaker.IsOpen() {
		return
	}
	raw, err := json.Marshal(claim.Snapshot())
	if err != nil {
		c.logger.WarnContext(ctx, "failed to encode claim for cache", "claim_id", claim.ID().String(), "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(claim.ID()), raw, c.ttl).Err(); err != nil {
		c.failed(ctx)
		c.logger.WarnContext(ctx, "claim cache write failed", "claim_id", claim.ID().String(), "error", err)
		return
	}
	c.succeeded(ctx)
}

func (c *RedisCache) invalidate(ctx context.Context, claimID id.ClaimID) {
	if err := c.client.Del(ctx, cacheKey(claimID)).Err(); err != nil {
		c.failed(ctx)
		c.logger.WarnContext(ctx, "claim cache invalidation failed", "claim_id", claimID.String(), "error", err)
		return
	}
	c.succeeded(ctx)
}

func (c *RedisCache) failed(ctx context.Context) {
	c.recordError()
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "claim cache breaker opened, reading from backend", "breaker", c.breaker.Name())
	}
}

func (c *RedisCache) succeeded(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "claim cache breaker closed", "breaker", c.breaker.Name())
	}
}

func (c *RedisCache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func (c *RedisCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
}

func (c *RedisCache) recordError() {
	if c.metrics != nil {
		c.metrics.RecordCacheError()
	}
}

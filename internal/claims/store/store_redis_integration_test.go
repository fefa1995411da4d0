//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"claimdesk/internal/claims/metrics"
	"claimdesk/internal/claims/models"
	"claimdesk/internal/claims/store"
	id "claimdesk/pkg/domain"
	"claimdesk/pkg/platform/sentinel"
	"claimdesk/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backend *store.InMemory
	cache   *store.RedisCache
	metrics *metrics.Metrics
	now     time.Time
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.backend = store.NewInMemory()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.cache = store.NewRedisCache(s.backend, s.redis.Client,
		store.WithCacheTTL(time.Minute),
		store.WithCacheMetrics(s.metrics),
	)
	s.now = time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
}

func (s *RedisCacheSuite) saveClaim() *models.Claim {
	d, err := models.NewDamage(id.NewDamageID(), "mirror", models.SeverityLow, "https://img.example.com/m.png", 80)
	s.Require().NoError(err)
	c, err := models.NewClaim(id.NewClaimID(), "Side mirror", "clipped in parking lot", []models.Damage{d}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Save(context.Background(), c))
	return c
}

func (s *RedisCacheSuite) TestReadThrough() {
	ctx := context.Background()
	c := s.saveClaim()

	first, err := s.cache.FindByID(ctx, c.ID())
	s.Require().NoError(err)
	s.Equal(c.Snapshot(), first.Snapshot())
	s.Equal(1.0, promtest.ToFloat64(s.metrics.CacheLookups.WithLabelValues("miss")))

	exists, err := s.redis.Client.Exists(ctx, "claims:claim:"+c.ID().String()).Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)

	second, err := s.cache.FindByID(ctx, c.ID())
	s.Require().NoError(err)
	s.Equal(c.Snapshot(), second.Snapshot())
	s.Equal(1.0, promtest.ToFloat64(s.metrics.CacheLookups.WithLabelValues("hit")))
}

func (s *RedisCacheSuite) TestWritesInvalidate() {
	ctx := context.Background()
	c := s.saveClaim()
	_, err := s.cache.FindByID(ctx, c.ID())
	s.Require().NoError(err)

	_, err = s.cache.Execute(ctx, c.ID(), func(claim *models.Claim) error {
		return claim.TransitionTo(models.StatusInReview, s.now)
	})
	s.Require().NoError(err)

	found, err := s.cache.FindByID(ctx, c.ID())
	s.Require().NoError(err)
	s.Equal(models.StatusInReview, found.Status())

	s.Require().NoError(s.cache.Delete(ctx, c.ID()))
	_, err = s.cache.FindByID(ctx, c.ID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisCacheSuite) TestDeleteIfDropsCachedCopy() {
	ctx := context.Background()
	c := s.saveClaim()
	_, err := s.cache.FindByID(ctx, c.ID())
	s.Require().NoError(err)

	s.Require().NoError(s.cache.DeleteIf(ctx, c.ID(), func(*models.Claim) error { return nil }))
	_, err = s.cache.FindByID(ctx, c.ID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

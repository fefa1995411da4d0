//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"claimdesk/internal/platform/config"
	platformredis "claimdesk/internal/platform/redis"
)

// RedisContainer is a throwaway Redis backing the claim cache in tests.
type RedisContainer struct {
	Container *tcredis.RedisContainer
	URL       string
	Client    *goredis.Client
}

// NewRedisContainer starts Redis and connects through the same client
// constructor the server uses.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		t.Fatalf("redis connection string: %v", err)
	}

	client, err := platformredis.New(ctx, config.RedisConfig{
		URL:         url,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		t.Fatalf("connect to redis: %v", err)
	}

	// Shared across suites by the Manager; Ryuk reaps the container.
	return &RedisContainer{
		Container: container,
		URL:       url,
		Client:    client.Client,
	}
}

// FlushAll drops every key so each test starts with a cold cache.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}

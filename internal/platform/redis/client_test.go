package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimdesk/internal/platform/config"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("no url disables redis", func(t *testing.T) {
		client, err := New(ctx, config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := New(ctx, config.RedisConfig{URL: "http://not-redis"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse redis URL")
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, err := New(ctx, config.RedisConfig{
			URL:         "redis://127.0.0.1:1/0",
			DialTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis ping failed")
	})
}

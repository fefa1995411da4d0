package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Equal(t, "req-42", RequestID(WithRequestID(ctx, "req-42")))
}

func TestNow(t *testing.T) {
	t.Run("pinned time wins", func(t *testing.T) {
		fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	})

	t.Run("falls back to wall clock in UTC", func(t *testing.T) {
		before := time.Now()
		got := Now(context.Background())
		assert.Equal(t, time.UTC, got.Location())
		assert.False(t, got.Before(before.Add(-time.Second)))
	})

	t.Run("values survive derived contexts", func(t *testing.T) {
		fixed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		ctx := WithTime(WithRequestID(context.Background(), "req-7"), fixed)
		child, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		assert.Equal(t, "req-7", RequestID(child))
		assert.Equal(t, fixed, Now(child))
	})
}

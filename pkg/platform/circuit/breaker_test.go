package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBreakerStartsClosed(t *testing.T) {
	b := New("claims-cache")
	assert.Equal(t, "claims-cache", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.False(t, b.IsOpen())
}

func TestRecordFailure(t *testing.T) {
	t.Run("opens on the threshold failure only", func(t *testing.T) {
		b := New("cache", WithFailureThreshold(3))

		for i := 0; i < 2; i++ {
			useFallback, change := b.RecordFailure()
			assert.False(t, useFallback)
			assert.False(t, change.Opened)
		}
		useFallback, change := b.RecordFailure()
		assert.True(t, useFallback)
		assert.True(t, change.Opened)
		assert.True(t, b.IsOpen())
	})

	t.Run("further failures while open report no change", func(t *testing.T) {
		b := New("cache", WithFailureThreshold(1))
		b.RecordFailure()

		useFallback, change := b.RecordFailure()
		assert.True(t, useFallback)
		assert.Equal(t, StateChange{}, change)
	})

	t.Run("a success in between restarts the count", func(t *testing.T) {
		b := New("cache", WithFailureThreshold(2))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		assert.False(t, b.IsOpen())
		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})

	t.Run("non-positive thresholds keep defaults", func(t *testing.T) {
		b := New("cache", WithFailureThreshold(0), WithSuccessThreshold(-1))
		for i := 0; i < defaultFailureThreshold-1; i++ {
			b.RecordFailure()
		}
		assert.False(t, b.IsOpen())
		b.RecordFailure()
		assert.True(t, b.IsOpen())
	})
}

func TestRecordSuccess(t *testing.T) {
	t.Run("closes after consecutive successes", func(t *testing.T) {
		b := New("cache", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		usePrimary, change := b.RecordSuccess()
		assert.False(t, usePrimary)
		assert.False(t, change.Closed)

		usePrimary, change = b.RecordSuccess()
		assert.True(t, usePrimary)
		assert.True(t, change.Closed)
		assert.Equal(t, StateClosed, b.State())
	})

	t.Run("a failure while open restarts the success count", func(t *testing.T) {
		b := New("cache", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordFailure()
		b.RecordSuccess()
		assert.True(t, b.IsOpen())
		b.RecordSuccess()
		assert.False(t, b.IsOpen())
	})
}

func TestReset(t *testing.T) {
	b := New("cache", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestConcurrentRecording(t *testing.T) {
	b := New("cache", WithFailureThreshold(50))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
		}()
	}
	wg.Wait()
	assert.True(t, b.IsOpen())
}

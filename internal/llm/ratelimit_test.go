package llm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the limiter sleeps.
type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func newFakeLimiter(perSecond, perMinute int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return newRateLimiterWithClock(perSecond, perMinute, clock.Now, clock.Sleep), clock
}

// admissions records the fake time of each Acquire return until horizon elapses.
func admissions(t *testing.T, rl *RateLimiter, clock *fakeClock, horizon time.Duration) []time.Time {
	t.Helper()
	start := clock.Now()
	var stamps []time.Time
	for clock.Now().Sub(start) < horizon {
		require.NoError(t, rl.Acquire(context.Background()))
		stamps = append(stamps, clock.Now())
	}
	return stamps
}

func maxInWindow(stamps []time.Time, window time.Duration) int {
	best := 0
	for i := range stamps {
		n := 0
		for j := i; j < len(stamps) && stamps[j].Sub(stamps[i]) < window; j++ {
			n++
		}
		if n > best {
			best = n
		}
	}
	return best
}

func TestRateLimiter(t *testing.T) {
	t.Run("per minute cap bounds sliding window", func(t *testing.T) {
		rl, clock := newFakeLimiter(0, 60)
		stamps := admissions(t, rl, clock, 5*time.Minute)

		assert.LessOrEqual(t, maxInWindow(stamps, time.Minute), 60+1)
		assert.GreaterOrEqual(t, len(stamps), 5*60-2)
	})

	t.Run("per second cap bounds sliding window", func(t *testing.T) {
		rl, clock := newFakeLimiter(4, 0)
		stamps := admissions(t, rl, clock, 30*time.Second)

		assert.LessOrEqual(t, maxInWindow(stamps, time.Second), 4+1)
		assert.GreaterOrEqual(t, len(stamps), 4*30-2)
	})

	t.Run("stricter cap wins", func(t *testing.T) {
		rl, clock := newFakeLimiter(10, 120)
		assert.InDelta(t, 2.0, rl.Rate(), 1e-9)

		stamps := admissions(t, rl, clock, time.Minute)
		assert.LessOrEqual(t, maxInWindow(stamps, time.Minute), 120+2)
		assert.LessOrEqual(t, maxInWindow(stamps, time.Second), 10)
	})

	t.Run("sub one per second still admits", func(t *testing.T) {
		rl, clock := newFakeLimiter(0, 6)
		stamps := admissions(t, rl, clock, time.Minute)

		require.NotEmpty(t, stamps)
		assert.LessOrEqual(t, maxInWindow(stamps, time.Minute), 6+1)
	})

	t.Run("zero caps are unbounded", func(t *testing.T) {
		rl := NewRateLimiter(0, 0)
		for i := 0; i < 10_000; i++ {
			require.True(t, rl.TryAcquire())
		}
	})

	t.Run("try acquire spaces admissions", func(t *testing.T) {
		rl, clock := newFakeLimiter(3, 0)
		assert.True(t, rl.TryAcquire())
		assert.False(t, rl.TryAcquire())

		require.NoError(t, clock.Sleep(context.Background(), 200*time.Millisecond))
		assert.False(t, rl.TryAcquire())

		require.NoError(t, clock.Sleep(context.Background(), 150*time.Millisecond))
		assert.True(t, rl.TryAcquire())
		assert.False(t, rl.TryAcquire())
	})

	t.Run("no burst at startup", func(t *testing.T) {
		rl, clock := newFakeLimiter(4, 0)
		stamps := admissions(t, rl, clock, 2*time.Second)

		require.GreaterOrEqual(t, len(stamps), 2)
		for i := 1; i < len(stamps); i++ {
			assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 250*time.Millisecond)
		}
		assert.LessOrEqual(t, maxInWindow(stamps, time.Second), 4)
	})

	t.Run("context cancellation", func(t *testing.T) {
		rl := NewRateLimiter(0, 1)
		require.NoError(t, rl.Acquire(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- rl.Acquire(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("Acquire did not return after cancel")
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		rl := NewRateLimiter(1000, 0)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, rl.Acquire(context.Background()))
			}()
		}
		wg.Wait()
	})
}

package llm

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// minWait keeps Acquire from spinning when the deficit is tiny.
const minWait = 10 * time.Millisecond

// RateLimiter is a token bucket that enforces the stricter of a per-second and
// a per-minute cap. A zero cap is unbounded in that dimension.
type RateLimiter struct {
	last      time.Time
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	tokens    float64
	capacity  float64
	rate      float64
	unbounded bool
	mu        sync.Mutex
}

// NewRateLimiter creates a limiter admitting at most min(perSecond, perMinute/60)
// requests per second. The bucket holds a single token and starts full.
func NewRateLimiter(perSecond, perMinute int) *RateLimiter {
	return newRateLimiterWithClock(perSecond, perMinute, time.Now, sleepContext)
}

func newRateLimiterWithClock(perSecond, perMinute int, now func() time.Time, sleep func(context.Context, time.Duration) error) *RateLimiter {
	rate := math.Inf(1)
	if perSecond > 0 {
		rate = float64(perSecond)
	}
	if perMinute > 0 {
		rate = math.Min(rate, float64(perMinute)/60.0)
	}

	rl := &RateLimiter{now: now, sleep: sleep, last: now()}
	if math.IsInf(rate, 1) {
		rl.unbounded = true
		return rl
	}
	rl.rate = rate
	// One token at most: admissions are spaced 1/rate apart, so no
	// sliding window ever sees more than the cap plus the startup token.
	rl.capacity = 1
	rl.tokens = rl.capacity
	return rl
}

// Acquire blocks until one request may proceed or ctx is canceled.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rate limiter canceled: %w", err)
		}

		wait, ok := rl.reserve()
		if ok {
			return nil
		}
		if err := rl.sleep(ctx, wait); err != nil {
			return fmt.Errorf("rate limiter canceled: %w", err)
		}
	}
}

// TryAcquire takes a token without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	_, ok := rl.reserve()
	return ok
}

// Rate returns the effective admissions per second, or +Inf when unbounded.
func (rl *RateLimiter) Rate() float64 {
	if rl.unbounded {
		return math.Inf(1)
	}
	return rl.rate
}

// reserve debits one token if available, otherwise reports how long until one is.
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	if rl.unbounded {
		return 0, true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.After(rl.last) {
		rl.tokens = math.Min(rl.capacity, rl.tokens+now.Sub(rl.last).Seconds()*rl.rate)
		rl.last = now
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}

	wait := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
	if wait < minWait {
		wait = minWait
	}
	return wait, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

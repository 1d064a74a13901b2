package middleware

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket guarding how fast a single session may
// submit messages to the hub.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	burst    int
	rate     time.Duration
	lastTick time.Time
	now      func() time.Time
}

func NewRatelimiter(burst int, rate time.Duration) *RateLimiter {
	return newRateLimiter(burst, rate, time.Now)
}

func newRateLimiter(burst int, rate time.Duration, now func() time.Time) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		tokens:   burst,
		burst:    burst,
		rate:     rate,
		lastTick: now(),
		now:      now,
	}
}

func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rate > 0 {
		now := l.now()
		generated := int(now.Sub(l.lastTick) / l.rate)
		if generated > 0 {
			l.tokens = min(l.tokens+generated, l.burst)
			l.lastTick = l.lastTick.Add(time.Duration(generated) * l.rate)
		}
	}

	if l.tokens <= 0 {
		return false
	}
	l.tokens--
	return true
}

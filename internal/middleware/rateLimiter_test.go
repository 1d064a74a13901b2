package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	clock := time.Unix(0, 0)
	l := newRateLimiter(3, time.Second, func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(), "token %d", i)
	}
	assert.False(t, l.Allow())

	clock = clock.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	clock = clock.Add(10 * time.Second)
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow())
	}
	assert.False(t, l.Allow(), "refill is capped at burst")
}

func TestRateLimiterZeroRateNeverRefills(t *testing.T) {
	l := NewRatelimiter(1, 0)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

package ratelimit

import (
	"sync"
	"time"
)

// Bucket is a token bucket limiter. Tokens refill continuously at Rate
// per second up to Burst; each Allow call consumes one token.
type Bucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

// NewBucket creates a bucket that admits rate requests per second with
// bursts up to burst. Non-positive values disable limiting.
func NewBucket(rate float64, burst int) *Bucket {
	if rate <= 0 || burst <= 0 {
		return nil
	}
	return &Bucket{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Allow reports whether one more request may proceed now. A nil bucket
// always allows.
func (b *Bucket) Allow() bool {
	if b == nil {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

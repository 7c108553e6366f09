package realtime

import (
	"math"
	"math/rand"
	"time"
)

// stableAfter is how long a connection must last before the attempt counter resets.
const stableAfter = 60 * time.Second

type backoff struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	attempt     int
	connectedAt time.Time
}

func (b *backoff) shouldRetry() bool {
	return b.maxAttempts == 0 || b.attempt < b.maxAttempts
}

func (b *backoff) markConnected() {
	b.connectedAt = time.Now()
}

// next returns the delay before the next attempt: exponential in the attempt
// count with up to 50% jitter, capped at maxDelay.
func (b *backoff) next() time.Duration {
	if !b.connectedAt.IsZero() && time.Since(b.connectedAt) > stableAfter {
		b.attempt = 0
	}
	b.connectedAt = time.Time{}
	jitter := rand.Float64() * float64(b.baseDelay) * 0.5
	delay := time.Duration(math.Min(
		float64(b.baseDelay)*math.Pow(2, float64(b.attempt))+jitter,
		float64(b.maxDelay),
	))
	b.attempt++
	return delay
}

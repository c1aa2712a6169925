package publish

import (
	"math"
	"math/rand"
	"time"
)

// backoff spaces out publish retries: initial * 2^retry, capped at max, with
// up to ±10% jitter. A zero max means uncapped.
type backoff struct {
	initial time.Duration
	max     time.Duration
	jitter  float64
	rnd     func() float64
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		jitter:  0.1,
		rnd:     rand.Float64,
	}
}

func (b *backoff) delay(retry int) time.Duration {
	if b.initial <= 0 {
		return 0
	}
	if retry < 0 {
		retry = 0
	}

	d := float64(b.initial) * math.Pow(2, float64(retry))
	d = b.clamp(d)
	d += d * b.jitter * (2*b.rnd() - 1)

	return time.Duration(b.clamp(d))
}

func (b *backoff) clamp(d float64) float64 {
	if b.max > 0 && d > float64(b.max) {
		return float64(b.max)
	}
	return d
}

package retry

import (
	"math/rand/v2"
	"time"
)

// Jitter randomizes delays. FullJitter picks uniformly from [0, d),
// EqualJitter from [d/2, d) and WithoutJitter keeps d unchanged.
type Jitter float64

const (
	EqualJitter   Jitter = 0.5
	FullJitter    Jitter = 1.0
	WithoutJitter Jitter = -1.0
)

func (j Jitter) apply(d time.Duration) time.Duration {
	if j <= 0 || d <= 0 {
		return d
	}

	r := rand.Float64() * float64(d) //nolint:gosec

	if j < 1 {
		r = float64(j)*r + float64(1-j)*float64(d)
	}

	return time.Duration(r)
}

package retry

import (
	"math"
	"time"
)

// Backoff computes the delay after a failed attempt. Attempts are zero-based.
type Backoff interface {
	Delay(attempt uint) time.Duration
}

// ExpBackoff grows the delay by Factor on every attempt, clamped to [Base, Max].
type ExpBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

func (b ExpBackoff) Delay(attempt uint) time.Duration {
	d := time.Duration(float64(b.Base) * math.Pow(b.Factor, float64(attempt)))

	switch {
	case d < b.Base:
		return b.Base
	case b.Max > 0 && d > b.Max:
		return b.Max
	default:
		return d
	}
}

// LinearBackoff waits Step after the first failure, 2*Step after the second
// and so on.
type LinearBackoff struct {
	Step time.Duration
}

func (b LinearBackoff) Delay(attempt uint) time.Duration {
	return time.Duration(attempt+1) * b.Step
}

// ConstBackoff always waits the same duration.
type ConstBackoff time.Duration

func (b ConstBackoff) Delay(uint) time.Duration {
	return time.Duration(b)
}

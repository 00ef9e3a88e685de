// Package memory implements the confidence model shared by the three learned
// memory stores: time decay, the usability gate, and the bounded
// approval/rejection adjustment steps.
package memory

import (
	"math"
	"time"
)

// DefaultHalfLifeDays is the decay half-life: days after which an unused
// memory's effective confidence halves.
const DefaultHalfLifeDays = 30.0

// DaysSince returns elapsed days between lastUsed and now. A zero lastUsed
// means the entry was never used and returns +Inf — an unused memory is
// worthless.
func DaysSince(lastUsed, now time.Time) float64 {
	if lastUsed.IsZero() {
		return math.Inf(1)
	}
	return now.Sub(lastUsed).Hours() / 24
}

// Decayed computes effective confidence from a stored base and elapsed days
// using exponential half-life decay, clamped to [0, 1]. Non-positive elapsed
// time decays nothing; infinite elapsed time decays everything.
func Decayed(base, elapsedDays float64) float64 {
	return DecayedWithHalfLife(base, elapsedDays, DefaultHalfLifeDays)
}

// DecayedWithHalfLife is Decayed with an explicit half-life in days.
func DecayedWithHalfLife(base, elapsedDays, halfLifeDays float64) float64 {
	if base < 0 {
		base = 0
	}
	if base > 1 {
		base = 1
	}
	if elapsedDays <= 0 {
		return base
	}
	if math.IsInf(elapsedDays, 1) {
		return 0
	}
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	effective := base * math.Pow(2, -elapsedDays/halfLifeDays)
	if effective < 0 {
		return 0
	}
	if effective > 1 {
		return 1
	}
	return effective
}

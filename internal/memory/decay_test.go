package memory

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecayed(t *testing.T) {
	tests := []struct {
		name    string
		base    float64
		elapsed float64
		want    float64
	}{
		{"no elapsed time", 0.8, 0, 0.8},
		{"negative elapsed time", 0.8, -5, 0.8},
		{"one half-life", 0.8, 30, 0.4},
		{"two half-lives", 0.8, 60, 0.2},
		{"three half-lives", 0.7, 90, 0.0875},
		{"fractional half-life", 1.0, 15, math.Pow(2, -0.5)},
		{"infinite elapsed", 0.9, math.Inf(1), 0},
		{"base above one is clamped", 1.5, 0, 1},
		{"negative base is clamped", -0.3, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Decayed(tt.base, tt.elapsed), 1e-9)
		})
	}
}

func TestDecayedWithHalfLife_NonPositiveHalfLife(t *testing.T) {
	// Falls back to the default half-life rather than dividing by zero.
	assert.InDelta(t, 0.4, DecayedWithHalfLife(0.8, 30, 0), 1e-9)
	assert.InDelta(t, 0.4, DecayedWithHalfLife(0.8, 30, -1), 1e-9)
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, math.IsInf(DaysSince(time.Time{}, now), 1), "never-used entry decays to worthless")
	assert.InDelta(t, 90, DaysSince(now.AddDate(0, 0, -90), now), 1e-9)
	assert.InDelta(t, 0.5, DaysSince(now.Add(-12*time.Hour), now), 1e-9)
}

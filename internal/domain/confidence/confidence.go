// Package confidence bounds heterogeneous prediction signals to an integer
// percentage in [0, 100].
package confidence

import "math"

// Bounds carries the tunables of the odds-implied path. The defaults come
// from observed upstream behavior and are configurable rather than
// explained; see config.
type Bounds struct {
	Default    int
	ImpliedMin int
	ImpliedMax int
}

// DefaultBounds matches the upstream defaults: 75 when nothing is known,
// odds-implied probability clamped to 30..95.
func DefaultBounds() Bounds {
	return Bounds{Default: 75, ImpliedMin: 30, ImpliedMax: 95}
}

// Clamp bounds a raw score to [0, 100].
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// FromOdds derives an implied-probability confidence from decimal odds,
// clamped to the configured window. Odds at or below 1.0 fall back to the
// default value.
func (b Bounds) FromOdds(odds float64) int {
	if odds <= 1 {
		return Clamp(b.Default)
	}
	implied := 100 / odds
	if implied < float64(b.ImpliedMin) {
		implied = float64(b.ImpliedMin)
	}
	if implied > float64(b.ImpliedMax) {
		implied = float64(b.ImpliedMax)
	}
	return Clamp(int(math.Round(implied)))
}

// Consensus is the share of sources that are strongly confident (>80) in
// the same match, as a rounded percentage. Zero sources yield zero.
func Consensus(confidences []int) int {
	if len(confidences) == 0 {
		return 0
	}
	strong := 0
	for _, c := range confidences {
		if c > 80 {
			strong++
		}
	}
	return Clamp(int(math.Round(float64(strong) / float64(len(confidences)) * 100)))
}

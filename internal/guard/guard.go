// Package guard applies the anti-Goodhart discount: observed improvements
// bought with recycled evidence are haircut by the term's quality penalty,
// while genuine regressions pass through nearly intact so the guard cannot
// be used to hide them.
package guard

import (
	"math"

	"github.com/plumbline/plumbline/internal/model"
)

// Guard discounts observed gains by evidence quality
type Guard struct {
	weights model.Weights
}

// NewGuard creates a guard with the given policy weights
func NewGuard(weights model.Weights) *Guard {
	return &Guard{weights: weights}
}

// Discount adjusts an observed gain by the term's recycling penalty.
// Positive gains are discounted by (1 - penalty); negative gains only by
// (1 - negativeDiscount*penalty). Input and output are bounded to
// [-bound, +bound].
func (g *Guard) Discount(observedGain float64, quality model.TermQuality) float64 {
	bound := g.weights.GuardGainBound
	gain := clamp(observedGain, -bound, bound)
	penalty := clamp(quality.Penalty, 0, 1)

	var adjusted float64
	if gain >= 0 {
		adjusted = gain * (1 - penalty)
	} else {
		adjusted = gain * (1 - g.weights.GuardNegativeDiscount*penalty)
	}
	return clamp(adjusted, -bound, bound)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

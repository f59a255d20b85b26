package guard

import (
	"testing"

	"github.com/plumbline/plumbline/internal/model"
)

func quality(penalty float64) model.TermQuality {
	return model.TermQuality{Term: "t", Penalty: penalty}
}

func TestDiscount_ZeroPenaltyPassesThrough(t *testing.T) {
	g := NewGuard(model.DefaultWeights())

	if got := g.Discount(0.4, quality(0)); got != 0.4 {
		t.Errorf("clean evidence should keep the full gain, got %v", got)
	}
	if got := g.Discount(-0.4, quality(0)); got != -0.4 {
		t.Errorf("clean evidence should keep the full loss, got %v", got)
	}
}

func TestDiscount_FullPenaltyErasesPositiveGain(t *testing.T) {
	g := NewGuard(model.DefaultWeights())

	if got := g.Discount(0.8, quality(1)); got != 0 {
		t.Errorf("fully recycled evidence should erase the gain, got %v", got)
	}
}

func TestDiscount_MonotoneInPenalty(t *testing.T) {
	g := NewGuard(model.DefaultWeights())

	prev := g.Discount(0.6, quality(0))
	for _, p := range []float64{0.25, 0.5, 0.75, 1.0} {
		got := g.Discount(0.6, quality(p))
		if got > prev {
			t.Errorf("discounted gain rose with penalty %v: %v > %v", p, got, prev)
		}
		prev = got
	}
}

func TestDiscount_NegativeGainsSurviveMostly(t *testing.T) {
	w := model.DefaultWeights()
	g := NewGuard(w)

	got := g.Discount(-0.5, quality(1))
	want := -0.5 * (1 - w.GuardNegativeDiscount)
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
	// A regression discounted less than an equal-magnitude gain
	if gain := g.Discount(0.5, quality(1)); -got <= gain {
		t.Errorf("regression (%v) should outweigh discounted gain (%v)", got, gain)
	}
}

func TestDiscount_BoundsInputAndOutput(t *testing.T) {
	w := model.DefaultWeights()
	g := NewGuard(w)

	if got := g.Discount(99, quality(0)); got != w.GuardGainBound {
		t.Errorf("expected clamp to +%v, got %v", w.GuardGainBound, got)
	}
	if got := g.Discount(-99, quality(0)); got != -w.GuardGainBound {
		t.Errorf("expected clamp to -%v, got %v", w.GuardGainBound, got)
	}
}

func TestDiscount_OutOfRangePenaltyClamped(t *testing.T) {
	g := NewGuard(model.DefaultWeights())

	if got := g.Discount(0.4, quality(7)); got != 0 {
		t.Errorf("penalty above 1 should clamp to full discount, got %v", got)
	}
	if got := g.Discount(0.4, quality(-3)); got != 0.4 {
		t.Errorf("negative penalty should clamp to none, got %v", got)
	}
}

package calibrate

import (
	"math"
	"testing"
)

func TestRidgeFit_RecoversKnownSolution(t *testing.T) {
	// y = 2*x0 + 1, no noise, near-zero regularization
	x := [][]float64{
		{0, 1},
		{1, 1},
		{2, 1},
		{3, 1},
	}
	y := []float64{1, 3, 5, 7}

	w := RidgeFit(x, y, 1e-9)

	if len(w) != 2 {
		t.Fatalf("expected 2 weights, got %d", len(w))
	}
	if math.Abs(w[0]-2) > 1e-6 {
		t.Errorf("expected slope 2, got %v", w[0])
	}
	if math.Abs(w[1]-1) > 1e-6 {
		t.Errorf("expected intercept 1, got %v", w[1])
	}
}

func TestRidgeFit_RegularizationShrinksSlope(t *testing.T) {
	x := [][]float64{{0, 1}, {1, 1}, {2, 1}, {3, 1}}
	y := []float64{1, 3, 5, 7}

	loose := RidgeFit(x, y, 1e-9)
	tight := RidgeFit(x, y, 10)

	if math.Abs(tight[0]) >= math.Abs(loose[0]) {
		t.Errorf("expected lambda to shrink the slope: %v vs %v", tight[0], loose[0])
	}
}

func TestRidgeFit_InterceptNotRegularized(t *testing.T) {
	// Constant target with zero slope features: heavy lambda must not drag
	// the intercept toward zero
	x := [][]float64{{0, 1}, {0, 1}, {0, 1}}
	y := []float64{5, 5, 5}

	w := RidgeFit(x, y, 100)

	if math.Abs(w[1]-5) > 1e-6 {
		t.Errorf("expected unpenalized intercept 5, got %v", w[1])
	}
}

func TestRidgeFit_SingularColumnGetsZeroWeight(t *testing.T) {
	// Second feature is identically zero: its normal-equations column has no
	// usable pivot at lambda 0
	x := [][]float64{
		{1, 0, 1},
		{2, 0, 1},
		{3, 0, 1},
	}
	y := []float64{2, 4, 6}

	w := RidgeFit(x, y, 0)

	if w[1] != 0 {
		t.Errorf("expected unsolved column to keep zero weight, got %v", w[1])
	}
	if math.Abs(w[0]-2) > 1e-6 {
		t.Errorf("expected solvable slope 2, got %v", w[0])
	}
}

func TestRidgeFit_DegenerateInput(t *testing.T) {
	if w := RidgeFit(nil, nil, 1); w != nil {
		t.Errorf("expected nil for empty design matrix, got %v", w)
	}
	if w := RidgeFit([][]float64{{1}}, []float64{1, 2}, 1); w != nil {
		t.Errorf("expected nil for mismatched rows, got %v", w)
	}
}

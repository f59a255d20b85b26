package calibrate

import "math"

// pivotFloor below which a pivot is considered unusable
const pivotFloor = 1e-12

// RidgeFit solves the regularized least squares (X'X + lambda*I)w = X'y in
// closed form. The feature count here is bounded (one indicator per task
// kind plus an intercept) so Gauss-Jordan elimination on the small
// normal-equations system is sufficient; no iterative solver is needed.
//
// Degenerate pivots are handled by swapping the largest available pivot row
// in; if no usable pivot exists the corresponding weight stays zero rather
// than failing the fit. The intercept column is not regularized.
func RidgeFit(x [][]float64, y []float64, lambda float64) []float64 {
	if len(x) == 0 || len(x[0]) == 0 || len(x) != len(y) {
		return nil
	}
	n := len(x)
	p := len(x[0])

	// Normal equations: A = X'X + lambda*I, b = X'y
	a := make([][]float64, p)
	b := make([]float64, p)
	for i := 0; i < p; i++ {
		a[i] = make([]float64, p)
		for j := 0; j < p; j++ {
			for k := 0; k < n; k++ {
				a[i][j] += x[k][i] * x[k][j]
			}
		}
		// Convention: column p-1 is the intercept and stays unpenalized
		if i < p-1 {
			a[i][i] += lambda
		}
		for k := 0; k < n; k++ {
			b[i] += x[k][i] * y[k]
		}
	}

	return gaussJordan(a, b)
}

// gaussJordan reduces [A|b] with partial pivoting. Columns with no usable
// pivot are marked unsolved and their weight reported as zero.
func gaussJordan(a [][]float64, b []float64) []float64 {
	p := len(a)
	solved := make([]bool, p)

	for col := 0; col < p; col++ {
		// Largest available pivot in this column among unused rows
		pivotRow := -1
		pivotAbs := pivotFloor
		for row := col; row < p; row++ {
			if abs := math.Abs(a[row][col]); abs > pivotAbs {
				pivotAbs = abs
				pivotRow = row
			}
		}
		if pivotRow < 0 {
			continue // singular column; weight stays zero
		}

		a[col], a[pivotRow] = a[pivotRow], a[col]
		b[col], b[pivotRow] = b[pivotRow], b[col]
		solved[col] = true

		pivot := a[col][col]
		for j := 0; j < p; j++ {
			a[col][j] /= pivot
		}
		b[col] /= pivot

		for row := 0; row < p; row++ {
			if row == col {
				continue
			}
			factor := a[row][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < p; j++ {
				a[row][j] -= factor * a[col][j]
			}
			b[row] -= factor * b[col]
		}
	}

	w := make([]float64, p)
	for i := 0; i < p; i++ {
		if solved[i] {
			w[i] = b[i]
		}
	}
	return w
}

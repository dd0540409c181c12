package optimization

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// assertFloat64SlicesEqual checks if two float64 slices are approximately equal
func assertFloat64SlicesEqual(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("at index %d: got %v, want %v (tolerance %v)", i, got[i], want[i], tol)
		}
	}
}

// assertInBounds checks that every row of X lies within the box.
func assertInBounds(t *testing.T, X *mat.Dense, bounds [][2]float64) {
	t.Helper()

	r, c := X.Dims()
	if c != len(bounds) {
		t.Fatalf("dimension mismatch: points have %d columns, bounds have %d", c, len(bounds))
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if v < bounds[j][0] || v > bounds[j][1] {
				t.Fatalf("point %d dimension %d: %v outside [%v, %v]", i, j, v, bounds[j][0], bounds[j][1])
			}
		}
	}
}

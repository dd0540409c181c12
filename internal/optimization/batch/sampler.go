package batch

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Uniform draws k points independently and uniformly within the box.
// Rows of the result are points.
func Uniform(bounds [][2]float64, k int, rng *rand.Rand) *mat.Dense {
	d := len(bounds)
	X := mat.NewDense(k, d, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < d; j++ {
			low, high := bounds[j][0], bounds[j][1]
			X.Set(i, j, low+rng.Float64()*(high-low))
		}
	}
	return X
}

// Grid returns k deterministic grid points spanning the box. Each
// dimension is discretized into ceil(k^(1/D)) levels and the first k rows
// of the row-major cartesian product are returned, so the result always
// has exactly k rows.
func Grid(bounds [][2]float64, k int) *mat.Dense {
	d := len(bounds)

	levels := int(math.Ceil(math.Pow(float64(k), 1.0/float64(d))))
	if levels < 1 {
		levels = 1
	}
	// Guard against floating point slop in the root above.
	for pow(levels, d) < k {
		levels++
	}

	X := mat.NewDense(k, d, nil)
	idx := make([]int, d)
	for i := 0; i < k; i++ {
		for j := 0; j < d; j++ {
			low, high := bounds[j][0], bounds[j][1]
			if levels == 1 {
				X.Set(i, j, low+(high-low)/2)
				continue
			}
			t := float64(idx[j]) / float64(levels-1)
			X.Set(i, j, low+t*(high-low))
		}
		// Advance the mixed-radix counter.
		for j := d - 1; j >= 0; j-- {
			idx[j]++
			if idx[j] < levels {
				break
			}
			idx[j] = 0
		}
	}
	return X
}

func pow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		if result > 1<<40 {
			return result
		}
		result *= base
	}
	return result
}

package batch

import (
	"gonum.org/v1/gonum/optimize"

	"github.com/copyleftdev/FLOE/internal/optimization"
)

// localMinimize refines a starting point to a local minimum of f over the
// box, using derivative-free Nelder-Mead with every iterate clamped to the
// bounds. Non-convergence is not an error: the best iterate found (or the
// clamped starting point, if the run produced nothing better) is returned
// together with its objective value.
func localMinimize(f func([]float64) float64, x0 []float64, bounds [][2]float64) ([]float64, float64) {
	start := optimization.ClampToBounds(append([]float64(nil), x0...), bounds)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := optimization.ClampToBounds(append([]float64(nil), x...), bounds)
			return f(clamped)
		},
	}

	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Relative:   1e-6,
			Iterations: 100,
		},
	}

	method := &optimize.NelderMead{
		Reflection:  1.0,
		Expansion:   2.0,
		Contraction: 0.5,
		Shrink:      0.5,
		SimplexSize: 0.2,
	}

	// An error here usually means an iteration limit or a misbehaving
	// objective; the best iterate is still usable either way, so the error
	// is deliberately not propagated.
	result, _ := optimize.Minimize(problem, start, settings, method)
	if result == nil || len(result.X) != len(start) {
		return start, f(start)
	}

	best := optimization.ClampToBounds(append([]float64(nil), result.X...), bounds)
	return best, result.F
}

// Package acquisition provides acquisition functions and the adapter that
// turns a pointwise (mu, sigma) scorer into the batched, lower-is-better
// scoring callback the selection core consumes.
package acquisition

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/FLOE/internal/optimization"
)

// Pointwise scores a single posterior prediction.
type Pointwise interface {
	Compute(mu, sigma float64) float64
}

// Minimizing adapts a pointwise scorer whose output is already
// lower-is-better (such as LCB) into a batched Acquisition against the
// given model.
func Minimizing(model optimization.Surrogate, fn Pointwise) optimization.Acquisition {
	return scoreWith(model, fn, 1)
}

// Maximizing adapts a higher-is-better scorer (such as EI) by negating its
// output, preserving the core's lower-is-better convention.
func Maximizing(model optimization.Surrogate, fn Pointwise) optimization.Acquisition {
	return scoreWith(model, fn, -1)
}

func scoreWith(model optimization.Surrogate, fn Pointwise, sign float64) optimization.Acquisition {
	return func(X *mat.Dense) (*mat.VecDense, error) {
		mean, variance, err := model.Predict(X)
		if err != nil {
			return nil, optimization.WrapError(err, "acquisition: scoring candidates")
		}
		n := mean.Len()
		scores := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			sigma := math.Sqrt(variance.AtVec(i))
			scores.SetVec(i, sign*fn.Compute(mean.AtVec(i), sigma))
		}
		return scores, nil
	}
}

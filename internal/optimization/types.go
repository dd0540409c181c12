package optimization

import (
	"gonum.org/v1/gonum/mat"
)

// Surrogate is the probabilistic regression model the selection core
// consumes. Candidate points are rows of a *mat.Dense.
type Surrogate interface {
	// Predict returns the posterior mean and variance at each row of X.
	Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error)

	// PredictiveGradients returns the gradient of the posterior mean at
	// each row of X, one gradient per row.
	PredictiveGradients(X *mat.Dense) (*mat.Dense, error)

	// Kern evaluates the kernel covariance matrix K(X, X).
	Kern(X *mat.Dense) (*mat.SymDense, error)

	// Observations returns the training inputs and outputs the model was
	// fitted on. Callers must not mutate the returned matrices.
	Observations() (*mat.Dense, *mat.VecDense)

	// Refit produces an independent model with the same kernel and noise,
	// fitted to the given data. The receiver is left untouched.
	Refit(X *mat.Dense, y *mat.VecDense) (Surrogate, error)
}

// Acquisition scores a set of candidate points, one score per row of X.
// Lower scores are more promising; every objective handed to a local
// optimizer in this repo follows the same lower-is-better convention.
type Acquisition func(X *mat.Dense) (*mat.VecDense, error)

// ValidateBounds checks that bounds describe a non-empty box with
// low <= high in every dimension.
func ValidateBounds(bounds [][2]float64) error {
	const op = "ValidateBounds"

	if len(bounds) == 0 {
		return NewError("bounds must have at least one dimension").
			WithOperation(op).asUsage()
	}
	for i, b := range bounds {
		if b[0] > b[1] {
			return NewErrorf("dimension %d: lower bound %v exceeds upper bound %v", i, b[0], b[1]).
				WithOperation(op).asUsage()
		}
	}
	return nil
}

// ClampToBounds projects x onto the box in place and returns it.
func ClampToBounds(x []float64, bounds [][2]float64) []float64 {
	for i := range x {
		if x[i] < bounds[i][0] {
			x[i] = bounds[i][0]
		}
		if x[i] > bounds[i][1] {
			x[i] = bounds[i][1]
		}
	}
	return x
}

package acquisition

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// ExpectedImprovement implements the Expected Improvement acquisition function
type ExpectedImprovement struct {
	// Best observed value so far
	bestObserved float64
	// Exploration-exploitation trade-off parameter (xi)
	xi float64
}

// NewExpectedImprovement creates a new ExpectedImprovement acquisition
// function for a minimization problem (lower objective values are better).
func NewExpectedImprovement(bestObserved, xi float64) *ExpectedImprovement {
	return &ExpectedImprovement{
		bestObserved: bestObserved,
		xi:           xi,
	}
}

// Compute computes the Expected Improvement at a point with posterior mean
// mu and standard deviation sigma. The result is always non-negative.
func (ei *ExpectedImprovement) Compute(mu, sigma float64) float64 {
	improvement := ei.bestObserved - mu - ei.xi
	if improvement <= 0 {
		return 0.0
	}

	// With near-zero uncertainty the improvement is certain.
	if sigma <= 1e-10 {
		return improvement
	}

	// EI = improvement * CDF(z) + sigma * PDF(z)
	stdNormal := distuv.UnitNormal
	z := improvement / sigma
	return improvement*stdNormal.CDF(z) + sigma*stdNormal.Prob(z)
}


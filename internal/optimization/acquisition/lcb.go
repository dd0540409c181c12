package acquisition

import "math"

// LowerConfidenceBound implements the GP-LCB acquisition function for
// minimization: LCB(x) = mu(x) - beta * sigma(x). Lower values are more
// promising, so it slots directly into the selection core's convention.
type LowerConfidenceBound struct {
	beta float64
}

// NewLowerConfidenceBound creates a new LCB acquisition with exploration
// weight beta. A non-positive beta falls back to the common default of 2.
func NewLowerConfidenceBound(beta float64) *LowerConfidenceBound {
	if beta <= 0 {
		beta = 2.0
	}
	return &LowerConfidenceBound{beta: beta}
}

// Compute computes the lower confidence bound at a point with posterior
// mean mu and standard deviation sigma.
func (lcb *LowerConfidenceBound) Compute(mu, sigma float64) float64 {
	if sigma < 0 || math.IsNaN(sigma) {
		sigma = 0
	}
	return mu - lcb.beta*sigma
}

// Beta returns the exploration weight.
func (lcb *LowerConfidenceBound) Beta() float64 {
	return lcb.beta
}

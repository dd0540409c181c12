package batch

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/FLOE/internal/optimization"
)

const (
	// lipschitzSamples is the number of seed points scored before the local
	// gradient-norm maximization.
	lipschitzSamples = 5

	// lipschitzFloor and lipschitzFallback guard against a surrogate that
	// is locally flat: an implausibly small estimate would shrink the
	// exclusion zones to nothing, so it is overridden outright.
	lipschitzFloor    = 0.1
	lipschitzFallback = 100.0
)

// EstimateL estimates a global Lipschitz constant of the objective by
// maximizing the norm of the surrogate's posterior mean gradient over the
// box, seeded from the steepest of a handful of uniform samples.
//
// alpha is accepted for a future quantile-based refinement of the
// estimate; the current policy does not use it.
func (s *Selector) EstimateL(model optimization.Surrogate, bounds [][2]float64, alpha float64) (float64, error) {
	const op = "Selector.EstimateL"

	if err := optimization.ValidateBounds(bounds); err != nil {
		return 0, optimization.WrapError(err, "batch: "+op)
	}

	d := len(bounds)

	// Negated gradient norm, so the local minimizer maximizes steepness.
	negGradNorm := func(X *mat.Dense) (*mat.VecDense, error) {
		grads, err := model.PredictiveGradients(X)
		if err != nil {
			return nil, err
		}
		n, _ := X.Dims()
		out := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			row := grads.RawRowView(i)
			var sumSq float64
			for _, g := range row {
				sumSq += g * g
			}
			out.SetVec(i, -math.Sqrt(sumSq))
		}
		return out, nil
	}

	seeds := Uniform(bounds, lipschitzSamples, s.rng)
	seedScores, err := negGradNorm(seeds)
	if err != nil {
		return 0, optimization.WrapError(err, "batch: "+op)
	}
	bestIdx := 0
	for i := 1; i < seedScores.Len(); i++ {
		if seedScores.AtVec(i) < seedScores.AtVec(bestIdx) {
			bestIdx = i
		}
	}

	objective := func(x []float64) float64 {
		scores, err := negGradNorm(mat.NewDense(1, d, append([]float64(nil), x...)))
		if err != nil {
			return math.Inf(1)
		}
		return scores.AtVec(0)
	}

	_, minusL := localMinimize(objective, seeds.RawRowView(bestIdx), bounds)
	L := -minusL

	if L < lipschitzFloor {
		s.logger.Debug("Lipschitz estimate implausibly small, applying fallback",
			zap.Float64("raw_estimate", L),
			zap.Float64("fallback", lipschitzFallback),
		)
		L = lipschitzFallback
	}
	return L, nil
}

// EstimateMin returns the smallest output value observed by the model, a
// plug-in estimate recomputed fresh each round. alpha is accepted for a
// future quantile-based estimate and unused by the current policy.
func EstimateMin(model optimization.Surrogate, alpha float64) float64 {
	_, y := model.Observations()
	if y == nil || y.Len() == 0 {
		return math.Inf(1)
	}
	min := y.AtVec(0)
	for i := 1; i < y.Len(); i++ {
		if v := y.AtVec(i); v < min {
			min = v
		}
	}
	return min
}

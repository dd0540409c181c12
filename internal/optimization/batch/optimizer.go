// Package batch selects the candidate points evaluated in one round of a
// sequential model-based optimization loop: single maximizers of an
// acquisition function, and multi-point batches built through local
// penalization, surrogate refitting, or weighted clustering.
//
// Every objective in this package follows one convention: lower is better.
// Acquisition functions score candidates that way, and the optimizer
// minimizes the penalized score directly.
package batch

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/FLOE/internal/optimization"
)

// Method selects how the single-point optimizer spends its restart budget:
// fast refines only the best seed, full refines every seed; seeds come
// from uniform random sampling or a deterministic grid.
type Method string

const (
	MethodFastRandom Method = "fast_random"
	MethodFastGrid   Method = "fast_grid"
	MethodFullRandom Method = "full_random"
	MethodFullGrid   Method = "full_grid"
)

func (m Method) valid() bool {
	switch m {
	case MethodFastRandom, MethodFastGrid, MethodFullRandom, MethodFullGrid:
		return true
	}
	return false
}

func (m Method) grid() bool {
	return m == MethodFastGrid || m == MethodFullGrid
}

func (m Method) fast() bool {
	return m == MethodFastRandom || m == MethodFastGrid
}

// Selector runs acquisition optimization and batch construction. It is
// not safe for concurrent use; each invocation is otherwise self-contained
// given the model and bounds it is passed.
type Selector struct {
	logger *zap.Logger
	rng    *rand.Rand
}

// NewSelector creates a Selector. A zero seed draws one from the clock; a
// nil logger disables logging.
func NewSelector(seed int64, logger *zap.Logger) *Selector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		logger: logger.Named("batch_selector"),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// samples draws the restart seeds for the given method.
func (s *Selector) samples(bounds [][2]float64, restarts int, method Method) *mat.Dense {
	if method.grid() {
		return Grid(bounds, restarts)
	}
	return Uniform(bounds, restarts, s.rng)
}

// Optimize finds one minimizer of the penalized acquisition over the box.
// With a nil or empty batch the objective degrades to the sign-normalized
// raw acquisition, so the same entry point serves the first batch slot and
// every penalized one. Ties across restarts resolve to the first seed.
func (s *Selector) Optimize(acq optimization.Acquisition, bounds [][2]float64, restarts int, method Method, model optimization.Surrogate, batch *mat.Dense, L, Min float64) ([]float64, error) {
	const op = "Selector.Optimize"

	if err := optimization.ValidateBounds(bounds); err != nil {
		return nil, optimization.WrapError(err, "batch: "+op)
	}
	if restarts < 1 {
		return nil, optimization.NewUsageError("restarts must be >= 1, got %d", restarts).
			WithComponent("batch").WithOperation(op)
	}
	if !method.valid() {
		return nil, optimization.NewUsageError("unknown method %q", method).
			WithComponent("batch").WithOperation(op)
	}

	penalized, err := Penalized(acq, model, batch, L, Min)
	if err != nil {
		return nil, optimization.WrapError(err, "batch: "+op)
	}

	// Scalar view of the penalized score for the local optimizer. Errors
	// inside a refinement map to +Inf so the run keeps its best iterate.
	d := len(bounds)
	objective := func(x []float64) float64 {
		scores, err := penalized(mat.NewDense(1, d, append([]float64(nil), x...)))
		if err != nil {
			return math.Inf(1)
		}
		return scores.AtVec(0)
	}

	seeds := s.samples(bounds, restarts, method)

	if method.fast() {
		scores, err := penalized(seeds)
		if err != nil {
			return nil, optimization.WrapError(err, "batch: "+op)
		}
		bestIdx := 0
		for i := 1; i < scores.Len(); i++ {
			if scores.AtVec(i) < scores.AtVec(bestIdx) {
				bestIdx = i
			}
		}
		x, fx := localMinimize(objective, seeds.RawRowView(bestIdx), bounds)
		s.logger.Debug("Fast acquisition optimization finished",
			zap.Int("restarts", restarts),
			zap.Int("seed_index", bestIdx),
			zap.Float64("objective", fx),
		)
		return x, nil
	}

	var bestX []float64
	bestVal := math.Inf(1)
	for i := 0; i < restarts; i++ {
		x, fx := localMinimize(objective, seeds.RawRowView(i), bounds)
		if fx < bestVal {
			bestVal = fx
			bestX = x
		}
	}
	s.logger.Debug("Full acquisition optimization finished",
		zap.Int("restarts", restarts),
		zap.Float64("objective", bestVal),
	)
	return bestX, nil
}

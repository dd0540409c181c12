package batch

import (
	"errors"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/FLOE/internal/optimization"
)

// AcquisitionBuilder constructs an acquisition function against a concrete
// model. The surrogate-refit strategy needs one because the model it
// scores against changes at every batch slot.
type AcquisitionBuilder func(optimization.Surrogate) optimization.Acquisition

// RandomBatch fills the batch with the unpenalized single-point optimum
// followed by uniform random points. A baseline for comparisons, not a
// competitive strategy.
func (s *Selector) RandomBatch(acq optimization.Acquisition, bounds [][2]float64, restarts int, method Method, model optimization.Surrogate, batchSize int) (*mat.Dense, error) {
	const op = "Selector.RandomBatch"

	if err := validateBatchArgs(bounds, batchSize, op); err != nil {
		return nil, err
	}

	first, err := s.Optimize(acq, bounds, restarts, method, model, nil, 0, 0)
	if err != nil {
		return nil, optimization.WrapError(err, "batch: "+op)
	}

	out := mat.NewDense(batchSize, len(bounds), nil)
	out.SetRow(0, first)
	for k := 1; k < batchSize; k++ {
		out.SetRow(k, Uniform(bounds, 1, s.rng).RawRowView(0))
	}
	return out, nil
}

// PenalizationBatch builds a batch by sequential local penalization: after
// the unpenalized optimum, each further slot re-optimizes the acquisition
// multiplied by hammer exclusion zones around every point chosen so far.
// The Lipschitz and minimum estimates are computed once and shared by all
// slots, so the whole round uses one exclusion geometry.
func (s *Selector) PenalizationBatch(acq optimization.Acquisition, bounds [][2]float64, restarts int, method Method, model optimization.Surrogate, batchSize int, alphaL, alphaMin float64) (*mat.Dense, error) {
	const op = "Selector.PenalizationBatch"

	if err := validateBatchArgs(bounds, batchSize, op); err != nil {
		return nil, err
	}

	first, err := s.Optimize(acq, bounds, restarts, method, model, nil, 0, 0)
	if err != nil {
		return nil, optimization.WrapError(err, "batch: "+op)
	}

	out := mat.NewDense(batchSize, len(bounds), nil)
	out.SetRow(0, first)
	if batchSize == 1 {
		return out, nil
	}

	L, err := s.EstimateL(model, bounds, alphaL)
	if err != nil {
		return nil, optimization.WrapError(err, "batch: "+op)
	}
	min := EstimateMin(model, alphaMin)

	s.logger.Debug("Penalization round estimates",
		zap.Float64("lipschitz", L),
		zap.Float64("min", min),
		zap.Int("batch_size", batchSize),
	)

	for k := 1; k < batchSize; k++ {
		chosen := out.Slice(0, k, 0, len(bounds)).(*mat.Dense)
		next, err := s.Optimize(acq, bounds, restarts, method, model, chosen, L, min)
		if err != nil {
			return nil, optimization.WrapError(err, "batch: "+op)
		}
		out.SetRow(k, next)
	}
	return out, nil
}

// RefitBatch builds a batch by speculative surrogate refitting: each
// chosen point is appended to a working copy of the observed data with its
// predicted mean as a placeholder label, and an independent surrogate is
// fitted to re-optimize the next slot. The caller's model is never
// mutated. If the refit covariance turns singular because the same point
// was selected twice, batch construction stops and the points collected so
// far are returned; the result may therefore be shorter than batchSize.
func (s *Selector) RefitBatch(build AcquisitionBuilder, bounds [][2]float64, restarts int, method Method, model optimization.Surrogate, batchSize int) (*mat.Dense, error) {
	const op = "Selector.RefitBatch"

	if err := validateBatchArgs(bounds, batchSize, op); err != nil {
		return nil, err
	}

	d := len(bounds)
	next, err := s.Optimize(build(model), bounds, restarts, method, model, nil, 0, 0)
	if err != nil {
		return nil, optimization.WrapError(err, "batch: "+op)
	}
	chosen := [][]float64{next}

	obsX, obsY := model.Observations()
	n, _ := obsX.Dims()
	workX := mat.DenseCopyOf(obsX)
	workY := mat.VecDenseCopyOf(obsY)

	for k := 1; k < batchSize; k++ {
		// Placeholder label: the original model's posterior mean at the
		// point just chosen, not a true evaluation.
		mean, _, err := model.Predict(mat.NewDense(1, d, append([]float64(nil), next...)))
		if err != nil {
			return nil, optimization.WrapError(err, "batch: "+op)
		}

		augX := mat.NewDense(n+len(chosen), d, nil)
		augX.Copy(workX)
		augX.SetRow(n+len(chosen)-1, next)
		augY := extendVec(workY, mean.AtVec(0))

		refit, err := model.Refit(augX, augY)
		if err != nil {
			if errors.Is(err, optimization.ErrSingular) {
				s.logger.Info("Batch construction stopped early: duplicate point selected",
					zap.Int("collected", len(chosen)),
					zap.Int("requested", batchSize),
				)
				break
			}
			return nil, optimization.WrapError(err, "batch: "+op)
		}

		workX = augX
		workY = augY

		next, err = s.Optimize(build(refit), bounds, restarts, method, refit, nil, 0, 0)
		if err != nil {
			return nil, optimization.WrapError(err, "batch: "+op)
		}
		chosen = append(chosen, next)
	}

	out := mat.NewDense(len(chosen), d, nil)
	for i, row := range chosen {
		out.SetRow(i, row)
	}
	return out, nil
}

func validateBatchArgs(bounds [][2]float64, batchSize int, op string) error {
	if err := optimization.ValidateBounds(bounds); err != nil {
		return optimization.WrapError(err, "batch: "+op)
	}
	if batchSize < 1 {
		return optimization.NewUsageError("batch size must be >= 1, got %d", batchSize).
			WithComponent("batch").WithOperation(op)
	}
	return nil
}

// extendVec returns a copy of v with one extra trailing element.
func extendVec(v *mat.VecDense, val float64) *mat.VecDense {
	out := mat.NewVecDense(v.Len()+1, nil)
	for i := 0; i < v.Len(); i++ {
		out.SetVec(i, v.AtVec(i))
	}
	out.SetVec(v.Len(), val)
	return out
}

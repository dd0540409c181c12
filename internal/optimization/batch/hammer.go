package batch

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/FLOE/internal/optimization"
)

// varianceFloor keeps the hammer spread away from a division by zero when
// the surrogate reports vanishing variance at a chosen point.
const varianceFloor = 1e-16

// hammer is the exclusion zone built around one already-chosen batch
// point. Its value at x is the probability, under the model's uncertainty
// at x0, that x is far enough from x0 to still be worth evaluating: close
// to 0 near x0, approaching 1 far away.
type hammer struct {
	x0      []float64
	radius  float64 // (m - Min) / L
	sScaled float64 // s / L
}

// newHammer queries the model at x0 and freezes the exclusion geometry for
// the remainder of the batch round. L and Min are shared across all
// hammers of one round.
func newHammer(x0 []float64, L, Min float64, model optimization.Surrogate) (*hammer, error) {
	const op = "newHammer"

	point := mat.NewDense(1, len(x0), append([]float64(nil), x0...))
	mean, variance, err := model.Predict(point)
	if err != nil {
		return nil, optimization.WrapError(err, "batch: "+op)
	}

	v := variance.AtVec(0)
	if v < varianceFloor {
		v = varianceFloor
	}
	s := math.Sqrt(v)

	return &hammer{
		x0:      append([]float64(nil), x0...),
		radius:  (mean.AtVec(0) - Min) / L,
		sScaled: s / L,
	}, nil
}

// exclusion evaluates the hammer at x: Phi((|x - x0| - radius) / sScaled).
func (h *hammer) exclusion(x []float64) float64 {
	var sumSq float64
	for i := range x {
		diff := x[i] - h.x0[i]
		sumSq += diff * diff
	}
	dist := math.Sqrt(sumSq)
	return distuv.UnitNormal.CDF((dist - h.radius) / h.sScaled)
}

// Penalized builds the objective the single-point optimizer actually
// minimizes. The raw acquisition (lower is better) is flipped to a
// goodness score, normalized by subtracting the signed magnitude of its
// minimum over the observed points, multiplied by the exclusion value of
// every point already in the batch, and negated back into lower-is-better
// form. With an empty batch the result is the sign-normalized raw
// acquisition and nothing else.
func Penalized(acq optimization.Acquisition, model optimization.Surrogate, batch *mat.Dense, L, Min float64) (optimization.Acquisition, error) {
	const op = "Penalized"

	obsX, _ := model.Observations()
	obsScores, err := acq(obsX)
	if err != nil {
		return nil, optimization.WrapError(err, "batch: "+op)
	}
	surMin := math.Inf(1)
	for i := 0; i < obsScores.Len(); i++ {
		if g := -obsScores.AtVec(i); g < surMin {
			surMin = g
		}
	}
	offset := math.Copysign(math.Abs(surMin), surMin)

	var hammers []*hammer
	if batch != nil {
		rows, _ := batch.Dims()
		for i := 0; i < rows; i++ {
			h, err := newHammer(batch.RawRowView(i), L, Min, model)
			if err != nil {
				return nil, optimization.WrapError(err, "batch: "+op)
			}
			hammers = append(hammers, h)
		}
	}

	return func(X *mat.Dense) (*mat.VecDense, error) {
		scores, err := acq(X)
		if err != nil {
			return nil, optimization.WrapError(err, "batch: "+op)
		}
		n, _ := X.Dims()
		out := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			fval := -scores.AtVec(i) - offset
			for _, h := range hammers {
				fval *= h.exclusion(X.RawRowView(i))
			}
			out.SetVec(i, -fval)
		}
		return out, nil
	}, nil
}

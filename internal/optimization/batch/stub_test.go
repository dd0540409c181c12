package batch

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/FLOE/internal/optimization"
)

// stubModel is a scriptable Surrogate for exercising the selection core
// without a fitted regressor.
type stubModel struct {
	x *mat.Dense
	y *mat.VecDense

	predict func(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error)
	grads   func(X *mat.Dense) (*mat.Dense, error)
	kern    func(X *mat.Dense) (*mat.SymDense, error)
	refit   func(X *mat.Dense, y *mat.VecDense) (optimization.Surrogate, error)
}

func (m *stubModel) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	if m.predict != nil {
		return m.predict(X)
	}
	n, _ := X.Dims()
	mean := mat.NewVecDense(n, nil)
	variance := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		variance.SetVec(i, 1)
	}
	return mean, variance, nil
}

func (m *stubModel) PredictiveGradients(X *mat.Dense) (*mat.Dense, error) {
	if m.grads != nil {
		return m.grads(X)
	}
	n, d := X.Dims()
	return mat.NewDense(n, d, nil), nil
}

func (m *stubModel) Kern(X *mat.Dense) (*mat.SymDense, error) {
	if m.kern != nil {
		return m.kern(X)
	}
	n, _ := X.Dims()
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		K.SetSym(i, i, 1)
	}
	return K, nil
}

func (m *stubModel) Observations() (*mat.Dense, *mat.VecDense) {
	return m.x, m.y
}

func (m *stubModel) Refit(X *mat.Dense, y *mat.VecDense) (optimization.Surrogate, error) {
	if m.refit != nil {
		return m.refit(X, y)
	}
	return &stubModel{x: mat.DenseCopyOf(X), y: mat.VecDenseCopyOf(y)}, nil
}

// cornersModel returns a stub observing the four corners of [-1,1]^2 with
// the given outputs.
func cornersModel(y ...float64) *stubModel {
	X := mat.NewDense(4, 2, []float64{
		-1, -1,
		-1, 1,
		1, -1,
		1, 1,
	})
	if len(y) != 4 {
		y = []float64{1, 1, 1, 1}
	}
	return &stubModel{x: X, y: mat.NewVecDense(4, y)}
}

// sphereAcq scores each row by its squared distance to center, so the
// global optimum of the acquisition is known exactly.
func sphereAcq(center []float64) optimization.Acquisition {
	return func(X *mat.Dense) (*mat.VecDense, error) {
		n, d := X.Dims()
		out := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			var sumSq float64
			for j := 0; j < d; j++ {
				diff := row[j] - center[j]
				sumSq += diff * diff
			}
			out.SetVec(i, sumSq)
		}
		return out, nil
	}
}

// peakAcq scores each row by -exp(-|x|^2): a single smooth optimum at the
// origin with strictly positive goodness everywhere.
func peakAcq() optimization.Acquisition {
	return func(X *mat.Dense) (*mat.VecDense, error) {
		n, d := X.Dims()
		out := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			row := X.RawRowView(i)
			var sumSq float64
			for j := 0; j < d; j++ {
				sumSq += row[j] * row[j]
			}
			out.SetVec(i, -math.Exp(-sumSq))
		}
		return out, nil
	}
}

package gp

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/FLOE/internal/optimization"
	"github.com/copyleftdev/FLOE/internal/optimization/kernels"
)

func fittedGP(t *testing.T, noiseVar float64) *GP {
	t.Helper()

	X := mat.NewDense(4, 2, []float64{
		0.0, 0.0,
		1.0, 0.5,
		-0.5, 1.0,
		0.3, -0.8,
	})
	y := mat.NewVecDense(4, []float64{0.0, 1.25, 1.25, 0.73})

	model := NewGP(kernels.NewRBFKernel(1.0, 1.0), noiseVar, nil)
	require.NoError(t, model.Fit(X, y))
	return model
}

func TestGPFitValidation(t *testing.T) {
	model := NewGP(kernels.NewRBFKernel(1.0, 1.0), 1e-6, nil)

	err := model.Fit(nil, nil)
	assert.Error(t, err)

	X := mat.NewDense(2, 1, []float64{0, 1})
	y := mat.NewVecDense(3, []float64{0, 1, 2})
	err = model.Fit(X, y)
	assert.Error(t, err)
}

func TestGPPredictInterpolates(t *testing.T) {
	model := fittedGP(t, 1e-8)

	X, y := model.Observations()
	mean, variance, err := model.Predict(X)
	require.NoError(t, err)

	for i := 0; i < y.Len(); i++ {
		assert.InDelta(t, y.AtVec(i), mean.AtVec(i), 1e-3,
			"posterior mean should interpolate training outputs with tiny noise")
		assert.GreaterOrEqual(t, variance.AtVec(i), 0.0)
	}
}

func TestGPVarianceClosedFormSinglePoint(t *testing.T) {
	// One training point: the posterior variance there has the closed
	// form Kss - k*^T K^-1 k* = (2 s sigma^2 + sigma^4) / (s + sigma^2)
	// with s the signal variance and sigma^2 the noise.
	const (
		signalVar = 4.0
		noiseVar  = 1e-6
	)
	X := mat.NewDense(1, 1, []float64{0.5})
	y := mat.NewVecDense(1, []float64{1.0})

	model := NewGP(kernels.NewRBFKernel(1.0, signalVar), noiseVar, nil)
	require.NoError(t, model.Fit(X, y))

	_, variance, err := model.Predict(X)
	require.NoError(t, err)

	want := (2*signalVar*noiseVar + noiseVar*noiseVar) / (signalVar + noiseVar)
	assert.InDelta(t, want, variance.AtVec(0), 1e-9)
}

func TestGPVarianceCollapsesAtTrainingPoints(t *testing.T) {
	// With a large signal variance the prior variance is ~4; at observed
	// points the posterior must collapse to the order of the noise, not
	// stay near the prior.
	X := mat.NewDense(3, 1, []float64{0.0, 2.0, 5.0})
	y := mat.NewVecDense(3, []float64{0.0, 1.0, -1.0})

	model := NewGP(kernels.NewRBFKernel(1.0, 4.0), 1e-6, nil)
	require.NoError(t, model.Fit(X, y))

	_, variance, err := model.Predict(X)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Less(t, variance.AtVec(i), 1e-4,
			"posterior variance at a training point must be near the noise level")
	}
}

func TestGPVarianceGrowsAwayFromData(t *testing.T) {
	model := fittedGP(t, 1e-6)

	near := mat.NewDense(1, 2, []float64{0.05, 0.05})
	far := mat.NewDense(1, 2, []float64{4.0, -4.0})

	_, vNear, err := model.Predict(near)
	require.NoError(t, err)
	_, vFar, err := model.Predict(far)
	require.NoError(t, err)

	assert.Greater(t, vFar.AtVec(0), vNear.AtVec(0))
}

func TestGPPredictiveGradients(t *testing.T) {
	model := fittedGP(t, 1e-6)

	x := []float64{0.4, 0.2}
	grads, err := model.PredictiveGradients(mat.NewDense(1, 2, append([]float64(nil), x...)))
	require.NoError(t, err)

	// Central differences on the posterior mean.
	const h = 1e-6
	for d := 0; d < 2; d++ {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[d] += h
		xm[d] -= h

		mp, _, err := model.Predict(mat.NewDense(1, 2, xp))
		require.NoError(t, err)
		mm, _, err := model.Predict(mat.NewDense(1, 2, xm))
		require.NoError(t, err)

		numerical := (mp.AtVec(0) - mm.AtVec(0)) / (2 * h)
		assert.InDelta(t, numerical, grads.At(0, d), 1e-4)
	}
}

func TestGPKernMatchesKernel(t *testing.T) {
	kernel := kernels.NewMatern52Kernel(1.0, 1.0)
	model := NewGP(kernel, 1e-6, nil)
	require.NoError(t, model.Fit(
		mat.NewDense(2, 1, []float64{0, 1}),
		mat.NewVecDense(2, []float64{0, 1}),
	))

	X := mat.NewDense(2, 1, []float64{0.2, 0.9})
	K, err := model.Kern(X)
	require.NoError(t, err)

	assert.InDelta(t, kernel.Eval([]float64{0.2}, []float64{0.2}), K.At(0, 0), 1e-12)
	assert.InDelta(t, kernel.Eval([]float64{0.2}, []float64{0.9}), K.At(0, 1), 1e-12)
}

func TestGPRefitLeavesReceiverUntouched(t *testing.T) {
	model := fittedGP(t, 1e-6)
	origX, origY := model.Observations()
	n, _ := origX.Dims()

	X2 := mat.NewDense(2, 2, []float64{0, 0, 2, 2})
	y2 := mat.NewVecDense(2, []float64{0, 8})
	clone, err := model.Refit(X2, y2)
	require.NoError(t, err)
	require.NotNil(t, clone)

	afterX, afterY := model.Observations()
	afterN, _ := afterX.Dims()
	assert.Equal(t, n, afterN)
	assert.Equal(t, origY.Len(), afterY.Len())

	cX, _ := clone.Observations()
	cN, _ := cX.Dims()
	assert.Equal(t, 2, cN)
}

func TestGPDuplicatePointsSingular(t *testing.T) {
	// With zero noise, duplicated rows make the covariance exactly singular.
	X := mat.NewDense(2, 1, []float64{0.5, 0.5})
	y := mat.NewVecDense(2, []float64{1.0, 1.0})

	model := NewGP(kernels.NewRBFKernel(1.0, 1.0), 0, nil)
	err := model.Fit(X, y)
	require.Error(t, err)
	assert.True(t, errors.Is(err, optimization.ErrSingular))
}

func TestGPMinObserved(t *testing.T) {
	model := fittedGP(t, 1e-6)
	assert.Equal(t, 0.0, model.MinObserved())

	empty := NewGP(kernels.NewRBFKernel(1.0, 1.0), 1e-6, nil)
	assert.True(t, math.IsInf(empty.MinObserved(), 1))
}

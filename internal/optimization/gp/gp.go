// Package gp provides the Gaussian-process surrogate consumed by the
// batch selection core.
package gp

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/FLOE/internal/optimization"
	"github.com/copyleftdev/FLOE/internal/optimization/kernels"
)

// GP implements a Gaussian Process regressor satisfying the
// optimization.Surrogate contract.
type GP struct {
	// Kernel function
	kernel kernels.Kernel

	// Noise variance added to the covariance diagonal
	noiseVar float64

	// Training data
	X *mat.Dense    // Input points (n_samples, n_features)
	y *mat.VecDense // Target values (n_samples)

	// Precomputed values
	alpha *mat.VecDense
	chol  *mat.Cholesky

	// Logger for structured logging
	logger *zap.Logger
}

// NewGP creates a new Gaussian Process model. A nil logger disables logging.
func NewGP(kernel kernels.Kernel, noiseVar float64, logger *zap.Logger) *GP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		logger:   logger.Named("gaussian_process"),
	}
}

// Fit fits the GP model to the training data. A covariance matrix that is
// not positive definite (duplicated points with zero noise being the usual
// cause) is reported as optimization.ErrSingular.
func (gp *GP) Fit(X *mat.Dense, y *mat.VecDense) error {
	const op = "GP.Fit"

	if X == nil || y == nil {
		err := errors.New("input matrices must not be nil")
		return optimization.WrapError(err, "gaussian_process: "+op)
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		err := errors.New("input matrix X must not be empty")
		return optimization.WrapError(err, "gaussian_process: "+op)
	}
	if nSamples != y.Len() {
		err := fmt.Errorf("dimension mismatch: X has %d samples but y has length %d",
			nSamples, y.Len())
		return optimization.WrapError(err, "gaussian_process: "+op)
	}

	gp.logger.Debug("Fitting GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64("noise_var", gp.noiseVar),
	)

	// Store training data
	gp.X = mat.DenseCopyOf(X)
	gp.y = mat.VecDenseCopyOf(y)

	// Compute kernel matrix with noise on the diagonal
	K := gp.kernelMatrix(gp.X)
	for i := 0; i < nSamples; i++ {
		K.SetSym(i, i, K.At(i, i)+gp.noiseVar)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(K); !ok {
		err := optimization.NewSingularError("covariance matrix is not positive definite").
			WithComponent("gaussian_process").WithOperation(op)
		gp.logger.Debug("Cholesky factorization failed",
			zap.Int("samples", nSamples),
			zap.Float64("noise_var", gp.noiseVar),
		)
		return err
	}
	gp.chol = &chol

	// Solve K * alpha = y
	alpha := mat.NewVecDense(nSamples, nil)
	if err := gp.chol.SolveVecTo(alpha, gp.y); err != nil {
		return optimization.WrapError(fmt.Errorf("failed to solve linear system: %w", err),
			"gaussian_process: "+op)
	}
	gp.alpha = alpha

	gp.logger.Debug("Successfully fitted GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
	)

	return nil
}

// kernelMatrix evaluates K(X, X) without the noise term.
func (gp *GP) kernelMatrix(X *mat.Dense) *mat.SymDense {
	n, _ := X.Dims()
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		xi := X.RawRowView(i)
		K.SetSym(i, i, gp.kernel.Eval(xi, xi))
		for j := i + 1; j < n; j++ {
			K.SetSym(i, j, gp.kernel.Eval(xi, X.RawRowView(j)))
		}
	}
	return K
}

// Predict returns the mean and variance of the posterior predictive
// distribution at the given test points.
func (gp *GP) Predict(X *mat.Dense) (*mat.VecDense, *mat.VecDense, error) {
	const op = "GP.Predict"

	if X == nil {
		return nil, nil, optimization.WrapError(
			errors.New("input matrix X is nil"),
			"gaussian_process: "+op,
		)
	}
	if gp.X == nil || gp.alpha == nil {
		return nil, nil, optimization.WrapError(
			errors.New("model not trained or no training data"),
			"gaussian_process: "+op,
		)
	}

	nTest, _ := X.Dims()
	nTrain, _ := gp.X.Dims()

	mean := mat.NewVecDense(nTest, nil)
	variance := mat.NewVecDense(nTest, nil)

	// Kernel matrix between test and training points
	Kss := make([]float64, nTest)
	Kstar := mat.NewDense(nTest, nTrain, nil)
	for i := 0; i < nTest; i++ {
		xStar := X.RawRowView(i)
		Kss[i] = gp.kernel.Eval(xStar, xStar) + gp.noiseVar
		for j := 0; j < nTrain; j++ {
			Kstar.Set(i, j, gp.kernel.Eval(xStar, gp.X.RawRowView(j)))
		}
	}

	// Mean: K* * alpha
	mean.MulVec(Kstar, gp.alpha)

	// Variance: diag(K** - K* K^-1 K*^T), with K^-1 K*^T solved through
	// the Cholesky factorization.
	v := mat.NewDense(nTrain, nTest, nil)
	if err := gp.chol.SolveTo(v, Kstar.T()); err != nil {
		return nil, nil, optimization.WrapError(
			fmt.Errorf("failed to solve linear system: %w", err),
			"gaussian_process: "+op,
		)
	}
	for i := 0; i < nTest; i++ {
		var sum float64
		for j := 0; j < nTrain; j++ {
			sum += Kstar.At(i, j) * v.At(j, i)
		}
		vi := Kss[i] - sum
		if vi < 0 {
			gp.logger.Debug("Negative variance detected, clamping to zero",
				zap.Float64("variance", vi),
				zap.Int("test_point", i),
			)
			vi = 0
		}
		variance.SetVec(i, vi)
	}

	return mean, variance, nil
}

// PredictiveGradients returns the gradient of the posterior mean at each
// test point: grad mu(x) = sum_j alpha_j * grad k(x, x_j).
func (gp *GP) PredictiveGradients(X *mat.Dense) (*mat.Dense, error) {
	const op = "GP.PredictiveGradients"

	if X == nil {
		return nil, optimization.WrapError(
			errors.New("input matrix X is nil"),
			"gaussian_process: "+op,
		)
	}
	if gp.X == nil || gp.alpha == nil {
		return nil, optimization.WrapError(
			errors.New("model not trained or no training data"),
			"gaussian_process: "+op,
		)
	}

	nTest, nFeatures := X.Dims()
	nTrain, _ := gp.X.Dims()

	grads := mat.NewDense(nTest, nFeatures, nil)
	kGrad := make([]float64, nFeatures)
	for i := 0; i < nTest; i++ {
		xStar := X.RawRowView(i)
		row := grads.RawRowView(i)
		for j := 0; j < nTrain; j++ {
			gp.kernel.Grad(xStar, gp.X.RawRowView(j), kGrad)
			aj := gp.alpha.AtVec(j)
			for d := 0; d < nFeatures; d++ {
				row[d] += aj * kGrad[d]
			}
		}
	}

	return grads, nil
}

// Kern evaluates the raw kernel covariance K(X, X), without observation noise.
func (gp *GP) Kern(X *mat.Dense) (*mat.SymDense, error) {
	const op = "GP.Kern"

	if X == nil {
		return nil, optimization.WrapError(
			errors.New("input matrix X is nil"),
			"gaussian_process: "+op,
		)
	}
	return gp.kernelMatrix(X), nil
}

// Observations returns the training data the model was fitted on.
// Callers must not mutate the returned matrices.
func (gp *GP) Observations() (*mat.Dense, *mat.VecDense) {
	return gp.X, gp.y
}

// Refit produces an independent GP with the same kernel and noise, fitted
// to the given data. The receiver is never mutated, so speculative
// intra-batch fits cannot leak into the caller's model.
func (gp *GP) Refit(X *mat.Dense, y *mat.VecDense) (optimization.Surrogate, error) {
	clone := NewGP(gp.kernel, gp.noiseVar, gp.logger)
	if err := clone.Fit(X, y); err != nil {
		return nil, err
	}
	return clone, nil
}

// MinObserved returns the smallest observed output value.
func (gp *GP) MinObserved() float64 {
	if gp.y == nil || gp.y.Len() == 0 {
		return math.Inf(1)
	}
	min := gp.y.AtVec(0)
	for i := 1; i < gp.y.Len(); i++ {
		if v := gp.y.AtVec(i); v < min {
			min = v
		}
	}
	return min
}

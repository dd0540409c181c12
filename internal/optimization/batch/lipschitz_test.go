package batch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEstimateLFlatModelFallsBack(t *testing.T) {
	// Zero posterior gradient everywhere: the raw estimate is 0 and the
	// fallback of 100 must kick in.
	model := cornersModel()

	s := NewSelector(7, nil)
	L, err := s.EstimateL(model, testBounds, 0.025)
	require.NoError(t, err)
	assert.Equal(t, 100.0, L)
}

func TestEstimateLConstantGradient(t *testing.T) {
	model := cornersModel()
	model.grads = func(X *mat.Dense) (*mat.Dense, error) {
		n, d := X.Dims()
		out := mat.NewDense(n, d, nil)
		for i := 0; i < n; i++ {
			out.Set(i, 0, 3)
			out.Set(i, 1, 4)
		}
		return out, nil
	}

	s := NewSelector(7, nil)
	L, err := s.EstimateL(model, testBounds, 0.025)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, L, 1e-6)
}

func TestEstimateLNeverBelowFloor(t *testing.T) {
	// A barely-sloped gradient field still yields at least the floor.
	model := cornersModel()
	model.grads = func(X *mat.Dense) (*mat.Dense, error) {
		n, d := X.Dims()
		out := mat.NewDense(n, d, nil)
		for i := 0; i < n; i++ {
			out.Set(i, 0, 1e-6)
		}
		return out, nil
	}

	s := NewSelector(7, nil)
	L, err := s.EstimateL(model, testBounds, 0.025)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, L, 0.1)
}

func TestEstimateLRejectsBadBounds(t *testing.T) {
	s := NewSelector(7, nil)
	_, err := s.EstimateL(cornersModel(), [][2]float64{{1, -1}}, 0.025)
	assert.Error(t, err)
}

func TestEstimateMin(t *testing.T) {
	model := cornersModel(3, 1, 2, 5)
	assert.Equal(t, 1.0, EstimateMin(model, 0.025))

	empty := &stubModel{}
	assert.True(t, math.IsInf(EstimateMin(empty, 0.025), 1))
}

package batch

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var testBounds = [][2]float64{{-1, 1}, {0, 2}}

func checkInBounds(t *testing.T, X *mat.Dense, bounds [][2]float64) {
	t.Helper()
	n, d := X.Dims()
	require.Equal(t, len(bounds), d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			v := X.At(i, j)
			assert.GreaterOrEqual(t, v, bounds[j][0], "row %d dim %d", i, j)
			assert.LessOrEqual(t, v, bounds[j][1], "row %d dim %d", i, j)
		}
	}
}

func TestUniformSampler(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, k := range []int{1, 5, 100} {
		X := Uniform(testBounds, k, rng)
		n, _ := X.Dims()
		assert.Equal(t, k, n)
		checkInBounds(t, X, testBounds)
	}
}

func TestGridSampler(t *testing.T) {
	for _, k := range []int{1, 4, 5, 9, 27} {
		X := Grid(testBounds, k)
		n, _ := X.Dims()
		assert.Equal(t, k, n, "grid must return exactly k points")
		checkInBounds(t, X, testBounds)
	}
}

func TestGridSamplerDeterministic(t *testing.T) {
	a := Grid(testBounds, 13)
	b := Grid(testBounds, 13)
	assert.True(t, mat.Equal(a, b))
}

func TestGridSamplerSpansDomain(t *testing.T) {
	X := Grid([][2]float64{{0, 10}}, 3)
	assert.InDelta(t, 0.0, X.At(0, 0), 1e-12)
	assert.InDelta(t, 5.0, X.At(1, 0), 1e-12)
	assert.InDelta(t, 10.0, X.At(2, 0), 1e-12)
}

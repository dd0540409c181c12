package batch

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/FLOE/internal/optimization"
)

// eigFloor keeps the inverse matrix square root finite when a group's
// covariance is rank deficient.
const eigFloor = 1e-10

// ClusteringBatch selects a batch from the discrete pool of observed
// points. Points are weighted per label group by a joint-improvement
// probability derived from the group's posterior mean and kernel
// covariance, then a weighted k-means over the whole pool yields the batch
// as its centroids. Requesting more points than have been observed is a
// usage error.
func (s *Selector) ClusteringBatch(model optimization.Surrogate, batchSize int, labels []int) (*mat.Dense, error) {
	const op = "Selector.ClusteringBatch"

	X, _ := model.Observations()
	if X == nil {
		return nil, optimization.NewUsageError("model has no observations").
			WithComponent("batch").WithOperation(op)
	}
	n, d := X.Dims()
	if batchSize < 1 {
		return nil, optimization.NewUsageError("batch size must be >= 1, got %d", batchSize).
			WithComponent("batch").WithOperation(op)
	}
	if n < batchSize {
		return nil, optimization.NewUsageError("observed points (%d) must be at least the batch size (%d)", n, batchSize).
			WithComponent("batch").WithOperation(op)
	}
	if len(labels) != n {
		return nil, optimization.NewUsageError("got %d labels for %d observed points", len(labels), n).
			WithComponent("batch").WithOperation(op)
	}

	weights := make([]float64, n)
	for _, group := range groupIndices(labels) {
		sub := mat.NewDense(len(group), d, nil)
		for i, idx := range group {
			sub.SetRow(i, X.RawRowView(idx))
		}

		w, err := groupWeights(sub, model)
		if err != nil {
			return nil, optimization.WrapError(err, "batch: "+op)
		}
		for i, idx := range group {
			weights[idx] = w[i]
		}
	}

	s.logger.Debug("Clustering batch weights computed",
		zap.Int("points", n),
		zap.Int("batch_size", batchSize),
	)

	return WeightedKMeans(X, weights, batchSize)
}

// groupIndices partitions point indices by label, in order of first
// appearance so the result is deterministic.
func groupIndices(labels []int) [][]int {
	order := make([]int, 0)
	byLabel := make(map[int][]int)
	for i, l := range labels {
		if _, seen := byLabel[l]; !seen {
			order = append(order, l)
		}
		byLabel[l] = append(byLabel[l], i)
	}
	groups := make([][]int, 0, len(order))
	for _, l := range order {
		groups = append(groups, byLabel[l])
	}
	return groups
}

// groupWeights computes, for each point of one group, the product over all
// other points of Phi((Sigma^{-1/2} mu)_j) with Sigma the group's kernel
// covariance and mu its posterior mean, a proxy for the probability that
// the rest of the group jointly improves.
func groupWeights(x *mat.Dense, model optimization.Surrogate) ([]float64, error) {
	sigma, err := model.Kern(x)
	if err != nil {
		return nil, err
	}
	mu, _, err := model.Predict(x)
	if err != nil {
		return nil, err
	}

	invSqrt, err := invSqrtSym(sigma)
	if err != nil {
		return nil, err
	}

	n := mu.Len()
	z := mat.NewVecDense(n, nil)
	z.MulVec(invSqrt, mu)

	probs := make([]float64, n)
	for i := 0; i < n; i++ {
		probs[i] = distuv.UnitNormal.CDF(z.AtVec(i))
	}

	w := make([]float64, n)
	for i := 0; i < n; i++ {
		prod := 1.0
		for j := 0; j < n; j++ {
			if j != i {
				prod *= probs[j]
			}
		}
		w[i] = prod
	}
	return w, nil
}

// invSqrtSym computes the inverse matrix square root of a symmetric
// positive semidefinite matrix via its eigendecomposition, flooring
// eigenvalues so a rank-deficient covariance stays finite.
func invSqrtSym(sigma *mat.SymDense) (*mat.Dense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(sigma, true); !ok {
		return nil, optimization.NewSingularError("eigendecomposition failed").
			WithComponent("batch").WithOperation("invSqrtSym")
	}

	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	n := len(vals)
	scaled := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		v := vals[j]
		if v < eigFloor {
			v = eigFloor
		}
		f := 1.0 / math.Sqrt(v)
		for i := 0; i < n; i++ {
			scaled.Set(i, j, vecs.At(i, j)*f)
		}
	}

	out := mat.NewDense(n, n, nil)
	out.Mul(scaled, vecs.T())
	return out, nil
}

// WeightedKMeans clusters the rows of X into k weighted clusters and
// returns the centroids, one per row. It is a standalone primitive with no
// surrogate semantics: initialization is a deterministic weighted
// farthest-point sweep, centroids are weighted means of their members,
// assignment is by Euclidean distance, and empty clusters are re-seeded at
// the heaviest unclaimed points. Iteration stops when assignments are
// stable or after a fixed cap.
func WeightedKMeans(X *mat.Dense, weights []float64, k int) (*mat.Dense, error) {
	const op = "WeightedKMeans"
	const maxIter = 100

	n, d := X.Dims()
	if k < 1 || k > n {
		return nil, optimization.NewUsageError("cluster count %d must be in [1, %d]", k, n).
			WithComponent("batch").WithOperation(op)
	}
	if len(weights) != n {
		return nil, optimization.NewUsageError("got %d weights for %d points", len(weights), n).
			WithComponent("batch").WithOperation(op)
	}

	// Degenerate weights behave like uniform ones.
	w := make([]float64, n)
	var total float64
	for i, wi := range weights {
		if wi < 0 || math.IsNaN(wi) {
			wi = 0
		}
		w[i] = wi
		total += wi
	}
	if total == 0 {
		for i := range w {
			w[i] = 1
		}
		total = float64(n)
	}

	centroids := mat.NewDense(k, d, nil)
	for i, idx := range farthestPointSeeds(X, w, k) {
		centroids.SetRow(i, X.RawRowView(idx))
	}

	assign := make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best := nearestRow(centroids, X.RawRowView(i))
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		sums := mat.NewDense(k, d, nil)
		mass := make([]float64, k)
		for i := 0; i < n; i++ {
			c := assign[i]
			mass[c] += w[i]
			row := X.RawRowView(i)
			for j := 0; j < d; j++ {
				sums.Set(c, j, sums.At(c, j)+w[i]*row[j])
			}
		}
		for c := 0; c < k; c++ {
			if mass[c] == 0 {
				// Re-seed only when a donor cluster can spare a member;
				// otherwise leave the centroid where it is.
				if donor := heaviestUnclaimed(w, assign, c); donor >= 0 {
					centroids.SetRow(c, X.RawRowView(donor))
				}
				continue
			}
			for j := 0; j < d; j++ {
				centroids.Set(c, j, sums.At(c, j)/mass[c])
			}
		}
	}

	return centroids, nil
}

// farthestPointSeeds picks k distinct seed indices: the heaviest point
// first, then repeatedly the point maximizing weight times squared
// distance to its nearest chosen seed.
func farthestPointSeeds(X *mat.Dense, w []float64, k int) []int {
	n, d := X.Dims()

	first, bestW := 0, math.Inf(-1)
	for i, wi := range w {
		if wi > bestW {
			bestW = wi
			first = i
		}
	}
	seeds := []int{first}

	minDistSq := make([]float64, n)
	for i := range minDistSq {
		minDistSq[i] = math.Inf(1)
	}

	for len(seeds) < k {
		last := seeds[len(seeds)-1]
		lastRow := X.RawRowView(last)
		for i := 0; i < n; i++ {
			var sumSq float64
			row := X.RawRowView(i)
			for j := 0; j < d; j++ {
				diff := row[j] - lastRow[j]
				sumSq += diff * diff
			}
			if sumSq < minDistSq[i] {
				minDistSq[i] = sumSq
			}
		}

		next, bestScore := -1, math.Inf(-1)
		for i := 0; i < n; i++ {
			if minDistSq[i] == 0 {
				continue
			}
			if score := w[i] * minDistSq[i]; score > bestScore {
				bestScore = score
				next = i
			}
		}
		if next < 0 {
			// Every remaining point coincides with a seed; reuse the first.
			next = first
		}
		seeds = append(seeds, next)
	}
	return seeds
}

func nearestRow(centroids *mat.Dense, x []float64) int {
	k, d := centroids.Dims()
	best, bestDist := 0, math.Inf(1)
	for c := 0; c < k; c++ {
		var sumSq float64
		for j := 0; j < d; j++ {
			diff := x[j] - centroids.At(c, j)
			sumSq += diff * diff
		}
		if sumSq < bestDist {
			bestDist = sumSq
			best = c
		}
	}
	return best
}

// heaviestUnclaimed picks the heaviest point whose cluster has other
// members, to re-seed an empty cluster. Returns -1 when every other
// cluster is a singleton and no point can be spared.
func heaviestUnclaimed(w []float64, assign []int, cluster int) int {
	counts := make(map[int]int)
	for _, c := range assign {
		counts[c]++
	}
	best, bestW := -1, math.Inf(-1)
	for i, wi := range w {
		if assign[i] == cluster {
			continue
		}
		if counts[assign[i]] <= 1 {
			continue
		}
		if wi > bestW {
			bestW = wi
			best = i
		}
	}
	return best
}

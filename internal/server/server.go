package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/FLOE/internal/config"
	"github.com/copyleftdev/FLOE/internal/optimization"
	"github.com/copyleftdev/FLOE/internal/optimization/acquisition"
	"github.com/copyleftdev/FLOE/internal/optimization/batch"
	"github.com/copyleftdev/FLOE/internal/optimization/gp"
	"github.com/copyleftdev/FLOE/internal/optimization/kernels"
)

// Server exposes batch suggestion over HTTP. Each request carries the
// observed data and selection settings; the server fits a surrogate and
// returns the next batch of evaluation points synchronously.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *Metrics
}

// NewServer creates a server. A nil metrics disables instrumentation.
func NewServer(cfg *config.Config, logger *zap.Logger, metrics *Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		metrics: metrics,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/suggest", s.handleSuggest)
	})
}

type suggestRequest struct {
	X      [][]float64 `json:"x"`
	Y      []float64   `json:"y"`
	Bounds [][]float64 `json:"bounds"`

	BatchSize int    `json:"batch_size"`
	Strategy  string `json:"strategy"`
	Labels    []int  `json:"labels,omitempty"`

	Acquisition string  `json:"acquisition"`
	Beta        float64 `json:"beta,omitempty"`
	Xi          float64 `json:"xi,omitempty"`

	Restarts int    `json:"restarts"`
	Method   string `json:"method"`
	Seed     int64  `json:"seed"`

	Kernel      string  `json:"kernel"`
	LengthScale float64 `json:"length_scale"`
	SignalVar   float64 `json:"signal_variance"`
	NoiseVar    float64 `json:"noise_variance"`
}

type suggestResponse struct {
	Points [][]float64 `json:"points"`
}

// applyDefaults fills the zero-valued request fields from server config
// and the modelling defaults.
func (s *Server) applyDefaults(req *suggestRequest) {
	if req.BatchSize == 0 {
		req.BatchSize = 1
	}
	if req.Strategy == "" {
		req.Strategy = "penalized"
	}
	if req.Acquisition == "" {
		req.Acquisition = "ei"
	}
	if req.Restarts == 0 {
		req.Restarts = s.cfg.Selection.Restarts
	}
	if req.Method == "" {
		req.Method = s.cfg.Selection.Method
	}
	if req.Seed == 0 {
		req.Seed = s.cfg.Selection.Seed
	}
	if req.Kernel == "" {
		req.Kernel = "rbf"
	}
	if req.LengthScale == 0 {
		req.LengthScale = 1.0
	}
	if req.SignalVar == 0 {
		req.SignalVar = 1.0
	}
	if req.NoiseVar == 0 {
		req.NoiseVar = 1e-6
	}
}

func (req *suggestRequest) validate(maxBatch int) error {
	if len(req.X) == 0 || len(req.X) != len(req.Y) {
		return fmt.Errorf("x and y must be non-empty and the same length, got %d and %d", len(req.X), len(req.Y))
	}
	if len(req.Bounds) == 0 {
		return errors.New("bounds must be non-empty")
	}
	for i, row := range req.X {
		if len(row) != len(req.Bounds) {
			return fmt.Errorf("x[%d] has %d coordinates, bounds have %d dimensions", i, len(row), len(req.Bounds))
		}
	}
	for i, b := range req.Bounds {
		if len(b) != 2 {
			return fmt.Errorf("bounds[%d] must be a [low, high] pair", i)
		}
	}
	if req.BatchSize < 1 || req.BatchSize > maxBatch {
		return fmt.Errorf("batch_size must be in [1, %d], got %d", maxBatch, req.BatchSize)
	}
	if req.LengthScale <= 0 || req.SignalVar <= 0 {
		return fmt.Errorf("length_scale and signal_variance must be positive, got %v and %v", req.LengthScale, req.SignalVar)
	}
	if req.NoiseVar < 0 {
		return fmt.Errorf("noise_variance must be non-negative, got %v", req.NoiseVar)
	}
	return nil
}

func (req *suggestRequest) kernel() (kernels.Kernel, error) {
	switch req.Kernel {
	case "rbf":
		return kernels.NewRBFKernel(req.LengthScale, req.SignalVar), nil
	case "matern52":
		return kernels.NewMatern52Kernel(req.LengthScale, req.SignalVar), nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", req.Kernel)
	}
}

// builder returns the acquisition constructor for the request. It is a
// constructor rather than a value because the surrogate-refit strategy
// rebuilds the acquisition against each intermediate model.
func (req *suggestRequest) builder() (batch.AcquisitionBuilder, error) {
	switch req.Acquisition {
	case "ei":
		xi := req.Xi
		return func(model optimization.Surrogate) optimization.Acquisition {
			return acquisition.Maximizing(model, acquisition.NewExpectedImprovement(minObserved(model), xi))
		}, nil
	case "lcb":
		lcb := acquisition.NewLowerConfidenceBound(req.Beta)
		return func(model optimization.Surrogate) optimization.Acquisition {
			return acquisition.Minimizing(model, lcb)
		}, nil
	default:
		return nil, fmt.Errorf("unknown acquisition %q", req.Acquisition)
	}
}

func minObserved(model optimization.Surrogate) float64 {
	_, y := model.Observations()
	best := math.Inf(1)
	if y == nil {
		return best
	}
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v < best {
			best = v
		}
	}
	return best
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), req.Strategy)
		return
	}
	s.applyDefaults(&req)

	if err := req.validate(s.cfg.Selection.MaxBatchSize); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error(), req.Strategy)
		return
	}

	points, err := s.suggest(&req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, optimization.ErrUsage) || errors.Is(err, optimization.ErrSingular) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("Suggestion failed",
			zap.String("strategy", req.Strategy),
			zap.Int("batch_size", req.BatchSize),
			zap.Error(err),
		)
		s.respondError(w, status, err.Error(), req.Strategy)
		return
	}

	rows, cols := points.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		copy(out[i], points.RawRowView(i))
	}

	s.observe(req.Strategy, http.StatusOK, req.BatchSize, time.Since(start))
	s.logger.Info("Suggestion served",
		zap.String("strategy", req.Strategy),
		zap.Int("batch_size", req.BatchSize),
		zap.Int("points", rows),
		zap.Duration("elapsed", time.Since(start)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(suggestResponse{Points: out})
}

// suggest fits the surrogate and dispatches to the requested batch
// strategy.
func (s *Server) suggest(req *suggestRequest) (*mat.Dense, error) {
	kernel, err := req.kernel()
	if err != nil {
		return nil, optimization.NewUsageError("%s", err)
	}

	n, d := len(req.X), len(req.Bounds)
	X := mat.NewDense(n, d, nil)
	for i, row := range req.X {
		X.SetRow(i, row)
	}
	y := mat.NewVecDense(n, req.Y)

	model := gp.NewGP(kernel, req.NoiseVar, s.logger)
	if err := model.Fit(X, y); err != nil {
		return nil, err
	}

	bounds := make([][2]float64, d)
	for i, b := range req.Bounds {
		bounds[i] = [2]float64{b[0], b[1]}
	}

	build, err := req.builder()
	if err != nil {
		return nil, optimization.NewUsageError("%s", err)
	}

	selector := batch.NewSelector(req.Seed, s.logger)
	method := batch.Method(req.Method)

	switch req.Strategy {
	case "random":
		return selector.RandomBatch(build(model), bounds, req.Restarts, method, model, req.BatchSize)
	case "penalized":
		return selector.PenalizationBatch(build(model), bounds, req.Restarts, method, model, req.BatchSize, 0, 0)
	case "refit":
		return selector.RefitBatch(build, bounds, req.Restarts, method, model, req.BatchSize)
	case "clustering":
		return selector.ClusteringBatch(model, req.BatchSize, req.Labels)
	default:
		return nil, optimization.NewUsageError("unknown strategy %q", req.Strategy)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg, strategy string) {
	s.observe(strategy, status, 0, 0)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) observe(strategy string, status, batchSize int, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	if strategy == "" {
		strategy = "unknown"
	}
	s.metrics.Requests.WithLabelValues(strategy, strconv.Itoa(status)).Inc()
	if status == http.StatusOK {
		s.metrics.Latency.WithLabelValues(strategy).Observe(elapsed.Seconds())
		s.metrics.Batch.Observe(float64(batchSize))
	}
}

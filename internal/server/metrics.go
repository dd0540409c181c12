package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the suggestion endpoint.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Batch    prometheus.Histogram
}

// NewMetrics registers the server collectors on the given registerer.
// Pass nil to use the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "floe_suggest_requests_total",
			Help: "Suggestion requests by strategy and status code.",
		}, []string{"strategy", "status"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "floe_suggest_duration_seconds",
			Help:    "Wall time spent building a suggestion batch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
		Batch: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "floe_suggest_batch_size",
			Help:    "Requested batch sizes.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
	}
}

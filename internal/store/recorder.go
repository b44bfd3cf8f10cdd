package store

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder observes every dispatch handled by a Store.
type Recorder interface {
	ObserveDispatch(kind string, size int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDispatch(string, int) {}

// PromRecorder exports dispatch counts and the current state size to Prometheus.
type PromRecorder struct {
	registry   *prometheus.Registry
	dispatches *prometheus.CounterVec
	records    prometheus.Gauge
}

// NewPromRecorder registers its collectors on registry.
// A nil registry gets a fresh one.
func NewPromRecorder(registry *prometheus.Registry) *PromRecorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	r := &PromRecorder{
		registry: registry,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metrics_state",
			Name:      "dispatch_total",
			Help:      "Actions dispatched to the metrics store, by kind.",
		}, []string{"kind"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "metrics_state",
			Name:      "records",
			Help:      "Number of metric records in the current state.",
		}),
	}
	registry.MustRegister(r.dispatches, r.records)
	return r
}

func (r *PromRecorder) ObserveDispatch(kind string, size int) {
	r.dispatches.WithLabelValues(kind).Inc()
	r.records.Set(float64(size))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PromRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

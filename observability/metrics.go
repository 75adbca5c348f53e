package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records vault operation activity for prometheus scraping.
type EngineMetrics struct {
	operations   *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	liquidations prometheus.Counter
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Metrics returns the lazily-initialised engine metrics registry.
func Metrics() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "synthvault",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total vault operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "synthvault",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for vault operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "synthvault",
				Subsystem: "engine",
				Name:      "liquidations_total",
				Help:      "Total liquidations executed against unsafe positions.",
			}),
		}
		prometheus.MustRegister(engineRegistry.operations, engineRegistry.latency, engineRegistry.liquidations)
	})
	return engineRegistry
}

// Observe records a completed operation.
func (m *EngineMetrics) Observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// LiquidationExecuted bumps the liquidation counter.
func (m *EngineMetrics) LiquidationExecuted() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

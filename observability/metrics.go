package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CurveMetrics records engine activity for the /metrics endpoint.
type CurveMetrics struct {
	Purchases       prometheus.Counter
	Sales           prometheus.Counter
	Deployments     prometheus.Counter
	OracleRefreshes prometheus.Counter
	OpErrors        *prometheus.CounterVec
	OpLatency       *prometheus.HistogramVec
}

var (
	curveMetricsOnce sync.Once
	curveRegistry    *CurveMetrics
)

// Metrics returns the lazily-initialised curve metrics registry.
func Metrics() *CurveMetrics {
	curveMetricsOnce.Do(func() {
		curveRegistry = &CurveMetrics{
			Purchases: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "curve",
				Name:      "purchases_total",
				Help:      "Total successful curve purchases.",
			}),
			Sales: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "curve",
				Name:      "sales_total",
				Help:      "Total successful curve sales.",
			}),
			Deployments: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "curve",
				Name:      "liquidity_deployments_total",
				Help:      "Total one-shot liquidity deployments (at most one per curve).",
			}),
			OracleRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "curve",
				Name:      "oracle_refreshes_total",
				Help:      "Total oracle cache rewrites.",
			}),
			OpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "curve",
				Name:      "operation_errors_total",
				Help:      "Failed curve operations segmented by operation and reason.",
			}, []string{"operation", "reason"}),
			OpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "curve",
				Name:      "operation_latency_seconds",
				Help:      "Latency of curve operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			curveRegistry.Purchases,
			curveRegistry.Sales,
			curveRegistry.Deployments,
			curveRegistry.OracleRefreshes,
			curveRegistry.OpErrors,
			curveRegistry.OpLatency,
		)
	})
	return curveRegistry
}

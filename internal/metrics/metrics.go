package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DequantOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dequant_ops_total",
		Help: "Dequantization calls per bit-width and backend",
	}, []string{"bits", "backend"})

	DequantDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dequant_duration_seconds",
		Help:    "Histogram of dequantization kernel times",
		Buckets: prometheus.DefBuckets,
	}, []string{"bits"})

	MatMulOps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matmul_ops_total",
		Help: "Total matrix multiplications executed",
	})

	MatMulViaF16 = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matmul_via_f16_total",
		Help: "Matrix multiplications taken through the half-precision path",
	})

	MatMulDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "matmul_duration_seconds",
		Help: "Duration of matrix multiplications",
	})

	RopeTableBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rope_table_builds_total",
		Help: "Rotation table constructions per variant",
	}, []string{"variant"})

	RopeApplies = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rope_applies_total",
		Help: "Rotary embedding applications",
	})

	RequantSwaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "requant_swaps_total",
		Help: "Atomic weight handle replacements",
	})

	PreconditionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "precondition_failures_total",
		Help: "Per-call precondition violations by operation",
	}, []string{"op"})
)

// RecordDequant observes one dequantization call.
func RecordDequant(bits string, backend string, d time.Duration) {
	DequantOps.WithLabelValues(bits, backend).Inc()
	DequantDuration.WithLabelValues(bits).Observe(d.Seconds())
}

// RecordMatMul observes one multiply, noting whether it took the
// half-precision path.
func RecordMatMul(viaF16 bool, d time.Duration) {
	MatMulOps.Inc()
	if viaF16 {
		MatMulViaF16.Inc()
	}
	MatMulDuration.Observe(d.Seconds())
}

// RecordTableBuild counts one rotation table construction.
func RecordTableBuild(variant string) {
	RopeTableBuilds.WithLabelValues(variant).Inc()
}

// RecordPrecondition counts a rejected call.
func RecordPrecondition(op string) {
	PreconditionFailures.WithLabelValues(op).Inc()
}

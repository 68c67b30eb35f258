// Package metrics exposes the Prometheus view of the benchmark pipeline.
// These are operational metrics about the harness itself; the measured
// provider numbers live in the store, not here.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	BenchmarksTotal  *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	LatencyMs        *prometheus.HistogramVec
	TTFTMs           *prometheus.HistogramVec
	TokensPerSec     *prometheus.HistogramVec
	CostUSD          *prometheus.CounterVec
	QueueDepth       *prometheus.GaugeVec
	BudgetSpendUSD   prometheus.Gauge
	BatchesTotal     *prometheus.CounterVec
	RateLimitedTotal prometheus.Counter
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		BenchmarksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benchhub_benchmarks_total",
			Help: "Benchmark attempts by outcome",
		}, []string{"provider", "model", "outcome"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benchhub_errors_total",
			Help: "Failed benchmarks by classified error type",
		}, []string{"provider", "error_type"}),
		LatencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "benchhub_latency_ms",
			Help:    "End-to-end benchmark call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12),
		}, []string{"provider", "model"}),
		TTFTMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "benchhub_ttft_ms",
			Help:    "Time to first token in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 12),
		}, []string{"provider", "model"}),
		TokensPerSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "benchhub_tokens_per_second",
			Help:    "Streaming throughput in output tokens per second",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"provider", "model"}),
		CostUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benchhub_cost_usd_total",
			Help: "Attributed USD cost of benchmark calls",
		}, []string{"provider", "model"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "benchhub_queue_depth",
			Help: "Queue items by status after the last batch",
		}, []string{"status"}),
		BudgetSpendUSD: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "benchhub_budget_spend_usd",
			Help: "Rolling 24h spend as seen by the budget breaker",
		}),
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "benchhub_batches_total",
			Help: "Batch invocations by final status",
		}, []string{"status"}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "benchhub_rate_limited_total",
			Help: "Control API requests rejected by the per-IP rate limiter",
		}),
	}
	reg.MustRegister(
		m.BenchmarksTotal, m.ErrorsTotal, m.LatencyMs, m.TTFTMs,
		m.TokensPerSec, m.CostUSD, m.QueueDepth, m.BudgetSpendUSD,
		m.BatchesTotal, m.RateLimitedTotal,
	)
	return m
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

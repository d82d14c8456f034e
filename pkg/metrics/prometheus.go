package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal   *prometheus.CounterVec
	droppedTicks *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	reconnects   *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipwatch_ticks_total",
				Help: "Total number of ticks accepted from upstream feeds",
			},
			[]string{"source", "symbol"},
		),
		droppedTicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipwatch_dropped_ticks_total",
				Help: "Total number of ticks dropped (late arrival, parse failure)",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		reconnects: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipwatch_reconnects_total",
				Help: "Total number of feed reconnect attempts",
			},
			[]string{"symbol"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dipwatch_cache_lookups_total",
				Help: "Cache lookups split by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dipwatch_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dipwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick records one accepted tick.
func (r *Recorder) RecordTick(source, symbol string) {
	r.ticksTotal.WithLabelValues(source, symbol).Inc()
}

// RecordDroppedTick records a discarded tick with its drop reason.
func (r *Recorder) RecordDroppedTick(reason string) {
	r.droppedTicks.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordReconnect records one reconnect attempt for a symbol.
func (r *Recorder) RecordReconnect(symbol string) {
	r.reconnects.WithLabelValues(symbol).Inc()
}

// RecordCacheLookup records a cache hit or miss for a category.
func (r *Recorder) RecordCacheLookup(category string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(category, outcome).Inc()
}

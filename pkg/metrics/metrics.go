// Package metrics exposes Prometheus instruments for the sequence service.
package metrics

import (
	"context"

	"github.com/illmade-knight/go-intseq/pkg/cache"
	"github.com/illmade-knight/go-intseq/pkg/sequence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "intseq"

// Collector records per-index outcomes and exposes engine cache sizes. It
// implements sequence.Observer.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	digits   *prometheus.HistogramVec
}

// NewCollector registers the request instruments with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		// Labels: sequence (id.kind), outcome (int, text, rejected, failed)
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total indices answered, by sequence and outcome",
		}, []string{"sequence", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compute_duration_seconds",
			Help:      "Time to answer a single index",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
		}, []string{"sequence"}),
		digits: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_digits",
			Help:      "Decimal digits of successful answers",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}, []string{"sequence"}),
	}
}

// Observe implements sequence.Observer.
func (c *Collector) Observe(_ context.Context, rec sequence.Record) {
	name := rec.Sequence.String()
	c.requests.WithLabelValues(name, string(rec.Outcome)).Inc()
	c.duration.WithLabelValues(name).Observe(rec.Duration.Seconds())
	if rec.Outcome == sequence.OutcomeInt || rec.Outcome == sequence.OutcomeText {
		c.digits.WithLabelValues(name).Observe(float64(rec.Digits))
	}
}

// RegisterEngines exposes the sizes of the shared engine caches.
func RegisterEngines(reg prometheus.Registerer, e *sequence.Engines) {
	f := promauto.With(reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "prime_table_size",
		Help:      "Number of primes currently held by the generator",
	}, func() float64 { return float64(e.Primes.Len()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "power_cache_entries",
		Help:        "Cached squarings per fast exponentiation engine",
		ConstLabels: prometheus.Labels{"engine": "fibonacci"},
	}, func() float64 { return float64(e.Fibonacci.CacheSize()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "power_cache_entries",
		Help:        "Cached squarings per fast exponentiation engine",
		ConstLabels: prometheus.Labels{"engine": "pow3"},
	}, func() float64 { return float64(e.Pow3.CacheSize()) })
}

// StatsSource is implemented by cache.InMemoryLRUCache.
type StatsSource interface {
	Stats() cache.Stats
	Len() int
}

// RegisterResultCache exposes the counters of the result cache.
func RegisterResultCache(reg prometheus.Registerer, src StatsSource) {
	f := promauto.With(reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "result_cache",
		Name:      "hits_total",
		Help:      "Result cache hits",
	}, func() float64 { return float64(src.Stats().Hits) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "result_cache",
		Name:      "misses_total",
		Help:      "Result cache misses",
	}, func() float64 { return float64(src.Stats().Misses) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "result_cache",
		Name:      "evictions_total",
		Help:      "Result cache evictions",
	}, func() float64 { return float64(src.Stats().Evictions) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "result_cache",
		Name:      "entries",
		Help:      "Results currently cached in memory",
	}, func() float64 { return float64(src.Len()) })
}

// AuditSource is implemented by auditlog.BatchInserter.
type AuditSource interface {
	Inserted() uint64
	Dropped() uint64
	Failed() uint64
}

// RegisterAudit exposes how many audit records reached the sink and how
// many were lost.
func RegisterAudit(reg prometheus.Registerer, src AuditSource) {
	f := promauto.With(reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "inserted_total",
		Help:      "Audit records written to the sink",
	}, func() float64 { return float64(src.Inserted()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "dropped_total",
		Help:      "Audit records dropped because the buffer was full",
	}, func() float64 { return float64(src.Dropped()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "audit",
		Name:      "failed_total",
		Help:      "Audit records lost to sink errors",
	}, func() float64 { return float64(src.Failed()) })
}

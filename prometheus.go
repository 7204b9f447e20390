package medvox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	queryKindLabel = "query_kind"
	outcomeLabel   = "outcome"
)

// PrometheusCollector is a MetricsCollector backed by Prometheus metrics.
// Register it against a custom Registerer to avoid the default registry.
type PrometheusCollector struct {
	inserts         *prometheus.CounterVec
	insertLatency   prometheus.Histogram
	queries         *prometheus.CounterVec
	queryResults    prometheus.Histogram
	queryLatency    *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	removes         *prometheus.CounterVec
	updates         *prometheus.CounterVec
	optimizeRuns    *prometheus.CounterVec
	optimizeLatency prometheus.Histogram
}

// NewPrometheusCollector creates a PrometheusCollector whose metrics are
// registered with reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		inserts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medvox_inserts_total",
			Help: "The number of insert operations by outcome.",
		}, []string{
			outcomeLabel,
		}),
		insertLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "medvox_insert_latency_seconds",
			Help: "The time to index one object.",
		}),
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medvox_queries_total",
			Help: "The number of query operations by query kind.",
		}, []string{
			queryKindLabel,
		}),
		queryResults: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "medvox_query_results",
			Help:    "The number of objects returned per query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		queryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "medvox_query_latency_seconds",
			Help: "The time to execute a query by query kind.",
		}, []string{
			queryKindLabel,
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "medvox_query_cache_hits_total",
			Help: "The number of queries served from the result cache.",
		}),
		removes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medvox_removes_total",
			Help: "The number of remove operations by outcome.",
		}, []string{
			outcomeLabel,
		}),
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medvox_updates_total",
			Help: "The number of update operations by outcome.",
		}, []string{
			outcomeLabel,
		}),
		optimizeRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medvox_optimize_runs_total",
			Help: "The number of optimize passes by outcome.",
		}, []string{
			outcomeLabel,
		}),
		optimizeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "medvox_optimize_latency_seconds",
			Help: "The time to run one optimize pass.",
		}),
	}
}

// RecordInsert implements MetricsCollector.
func (p *PrometheusCollector) RecordInsert(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.inserts.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
	p.insertLatency.Observe(duration.Seconds())
}

// RecordQuery implements MetricsCollector.
func (p *PrometheusCollector) RecordQuery(kind string, results int, duration time.Duration, cacheHit bool) {
	p.queries.With(prometheus.Labels{queryKindLabel: kind}).Inc()
	p.queryResults.Observe(float64(results))
	p.queryLatency.With(prometheus.Labels{queryKindLabel: kind}).Observe(duration.Seconds())
	if cacheHit {
		p.cacheHits.Inc()
	}
}

// RecordRemove implements MetricsCollector.
func (p *PrometheusCollector) RecordRemove(duration time.Duration, found bool) {
	outcome := "found"
	if !found {
		outcome = "missing"
	}
	p.removes.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// RecordUpdate implements MetricsCollector.
func (p *PrometheusCollector) RecordUpdate(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.updates.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// RecordOptimize implements MetricsCollector.
func (p *PrometheusCollector) RecordOptimize(duration time.Duration, rebuilt bool) {
	outcome := "skipped"
	if rebuilt {
		outcome = "rebuilt"
	}
	p.optimizeRuns.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
	p.optimizeLatency.Observe(duration.Seconds())
}

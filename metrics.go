package medvox

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// NewPrometheusCollector for a ready-made Prometheus implementation.
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	// duration is the total time taken, err is nil if the object was indexed.
	RecordInsert(duration time.Duration, err error)

	// RecordQuery is called after each query operation. kind is the query
	// kind's string form, results is the number of objects returned and
	// cacheHit reports whether the result came from the query cache.
	RecordQuery(kind string, results int, duration time.Duration, cacheHit bool)

	// RecordRemove is called after each remove operation.
	RecordRemove(duration time.Duration, found bool)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, err error)

	// RecordOptimize is called after each optimize pass. rebuilt reports
	// whether the pass actually rebuilt the underlying structures.
	RecordOptimize(duration time.Duration, rebuilt bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)            {}
func (NoopMetricsCollector) RecordQuery(string, int, time.Duration, bool) {}
func (NoopMetricsCollector) RecordRemove(time.Duration, bool)             {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)            {}
func (NoopMetricsCollector) RecordOptimize(time.Duration, bool)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	QueryCount       atomic.Int64
	QueryResults     atomic.Int64
	QueryTotalNanos  atomic.Int64
	CacheHits        atomic.Int64
	RemoveCount      atomic.Int64
	RemoveMisses     atomic.Int64
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	OptimizeCount    atomic.Int64
	OptimizeRebuilds atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(kind string, results int, duration time.Duration, cacheHit bool) {
	b.QueryCount.Add(1)
	b.QueryResults.Add(int64(results))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if cacheHit {
		b.CacheHits.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, found bool) {
	b.RemoveCount.Add(1)
	if !found {
		b.RemoveMisses.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordOptimize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOptimize(duration time.Duration, rebuilt bool) {
	b.OptimizeCount.Add(1)
	if rebuilt {
		b.OptimizeRebuilds.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:      b.InsertCount.Load(),
		InsertErrors:     b.InsertErrors.Load(),
		InsertAvgNanos:   avg(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		QueryCount:       b.QueryCount.Load(),
		QueryResults:     b.QueryResults.Load(),
		QueryAvgNanos:    avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		CacheHits:        b.CacheHits.Load(),
		RemoveCount:      b.RemoveCount.Load(),
		RemoveMisses:     b.RemoveMisses.Load(),
		UpdateCount:      b.UpdateCount.Load(),
		UpdateErrors:     b.UpdateErrors.Load(),
		OptimizeCount:    b.OptimizeCount.Load(),
		OptimizeRebuilds: b.OptimizeRebuilds.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount      int64
	InsertErrors     int64
	InsertAvgNanos   int64
	QueryCount       int64
	QueryResults     int64
	QueryAvgNanos    int64
	CacheHits        int64
	RemoveCount      int64
	RemoveMisses     int64
	UpdateCount      int64
	UpdateErrors     int64
	OptimizeCount    int64
	OptimizeRebuilds int64
}

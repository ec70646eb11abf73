package swarmdb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordOpen is called after each Open. rebuilt is the number of index
	// files that had to be regenerated.
	RecordOpen(duration time.Duration, rebuilt int, err error)

	// RecordQuery is called when a cursor is exhausted. records is the
	// number of records it returned.
	RecordQuery(records int, duration time.Duration)

	// RecordSnapshot is called after each reconstructed snapshot.
	RecordSnapshot(systems int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(time.Duration, int, error) {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration)       {}
func (NoopMetricsCollector) RecordSnapshot(int, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenCount        atomic.Int64
	OpenErrors       atomic.Int64
	IndexRebuilds    atomic.Int64
	QueryCount       atomic.Int64
	QueryRecords     atomic.Int64
	QueryTotalNanos  atomic.Int64
	SnapshotCount    atomic.Int64
	SnapshotSystems  atomic.Int64
	SnapshotFailures atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(duration time.Duration, rebuilt int, err error) {
	b.OpenCount.Add(1)
	b.IndexRebuilds.Add(int64(rebuilt))
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(records int, duration time.Duration) {
	b.QueryCount.Add(1)
	b.QueryRecords.Add(int64(records))
	b.QueryTotalNanos.Add(duration.Nanoseconds())
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(systems int, err error) {
	b.SnapshotCount.Add(1)
	b.SnapshotSystems.Add(int64(systems))
	if err != nil {
		b.SnapshotFailures.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenCount:        b.OpenCount.Load(),
		OpenErrors:       b.OpenErrors.Load(),
		IndexRebuilds:    b.IndexRebuilds.Load(),
		QueryCount:       b.QueryCount.Load(),
		QueryRecords:     b.QueryRecords.Load(),
		QueryAvgNanos:    b.getAvgQueryNanos(),
		SnapshotCount:    b.SnapshotCount.Load(),
		SnapshotSystems:  b.SnapshotSystems.Load(),
		SnapshotFailures: b.SnapshotFailures.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpenCount        int64
	OpenErrors       int64
	IndexRebuilds    int64
	QueryCount       int64
	QueryRecords     int64
	QueryAvgNanos    int64
	SnapshotCount    int64
	SnapshotSystems  int64
	SnapshotFailures int64
}

package swarmdb

import (
	"log/slog"

	"github.com/hupe1980/swarmdb/index"
)

type options struct {
	forceReindex     bool
	metricsCollector MetricsCollector
	logger           *Logger
	indexOptions     []func(*index.Options)
}

// Option configures Open.
type Option func(*options)

// WithForceReindex rebuilds both index files on open even when they are
// fresh.
func WithForceReindex() Option {
	return func(o *options) {
		o.forceReindex = true
	}
}

// WithIndexOptions passes options through to index.Build when an index has
// to be regenerated.
func WithIndexOptions(optFns ...func(*index.Options)) Option {
	return func(o *options) {
		o.indexOptions = append(o.indexOptions, optFns...)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &swarmdb.BasicMetricsCollector{}
//	db, _ := swarmdb.Open("run.bin", swarmdb.WithMetricsCollector(metrics))
//	// ... query ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, records: %d\n", stats.QueryCount, stats.QueryRecords)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := swarmdb.NewJSONLogger(slog.LevelInfo)
//	db, _ := swarmdb.Open("run.bin", swarmdb.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           &Logger{Logger: slog.Default()},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

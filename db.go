package swarmdb

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/index"
	"github.com/hupe1980/swarmdb/internal/mapfile"
	"github.com/hupe1980/swarmdb/internal/mmap"
)

// DB is an opened, sorted trajectory log together with its time and system
// indexes. A DB is safe for concurrent use by multiple goroutines; each
// Cursor must be used by one goroutine at a time.
type DB struct {
	path   string
	fp     format.Fingerprint
	data   *mapfile.File
	byTime *index.Index
	bySys  *index.Index
	opts   options
	closed atomic.Bool
}

// Open opens the sorted log at datafile. Index files that are missing,
// incompatible or built from a different version of the log are rebuilt;
// WithForceReindex rebuilds both.
func Open(datafile string, optFns ...Option) (*DB, error) {
	o := applyOptions(optFns)
	ctx := context.Background()
	start := time.Now()

	db, rebuilt, err := open(ctx, datafile, o)

	o.metricsCollector.RecordOpen(time.Since(start), rebuilt, err)
	records := 0
	if db != nil {
		records = db.byTime.Len()
	}
	o.logger.LogOpen(ctx, datafile, records, rebuilt, err)
	return db, err
}

func open(ctx context.Context, datafile string, o options) (*DB, int, error) {
	f, err := os.Open(datafile)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot open %s: %w", datafile, err)
	}
	fi, err := f.Stat()
	_ = f.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("stat %s: %w", datafile, err)
	}

	o.logger = o.logger.WithFile(datafile)
	db := &DB{
		path: datafile,
		fp:   format.FingerprintOf(fi),
		opts: o,
	}

	db.data, err = mapfile.Open(datafile, format.TypeSorted, mapfile.ReadOnly, true)
	if err != nil {
		return nil, 0, err
	}
	_ = db.data.Advise(mmap.AccessRandom)

	slots := []struct {
		order index.Order
		ix    **index.Index
	}{
		{index.TimeOrder, &db.byTime},
		{index.SystemOrder, &db.bySys},
	}

	var rebuild []index.Order
	for _, s := range slots {
		if o.forceReindex {
			rebuild = append(rebuild, s.order)
			continue
		}
		ix, err := index.OpenFresh(datafile, s.order, db.fp)
		if err != nil {
			o.logger.LogReindex(ctx, s.order.Path(datafile), err)
			rebuild = append(rebuild, s.order)
			continue
		}
		*s.ix = ix
	}

	if len(rebuild) > 0 {
		optFns := append([]func(*index.Options){func(bo *index.Options) {
			bo.Logger = o.logger.Logger
		}}, o.indexOptions...)
		if err := index.Build(datafile, rebuild, optFns...); err != nil {
			_ = db.Close()
			return nil, len(rebuild), err
		}
		for _, s := range slots {
			if *s.ix != nil {
				continue
			}
			ix, err := index.OpenFresh(datafile, s.order, db.fp)
			if err != nil {
				_ = db.Close()
				return nil, len(rebuild), fmt.Errorf("cannot open regenerated index: %w", err)
			}
			*s.ix = ix
		}
	}

	return db, len(rebuild), nil
}

// Path returns the path of the log file.
func (db *DB) Path() string { return db.path }

// Fingerprint returns the fingerprint of the log file at open time.
func (db *DB) Fingerprint() format.Fingerprint { return db.fp }

// Len returns the number of records in the log.
func (db *DB) Len() int { return db.byTime.Len() }

func (db *DB) payload() []byte { return db.data.Payload() }

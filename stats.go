package swarmdb

import (
	"math"
	"os"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/index"
	"github.com/hupe1980/swarmdb/model"
	"github.com/hupe1980/swarmdb/record"
)

// Stats summarizes an opened log.
type Stats struct {
	Path         string
	Fingerprint  format.Fingerprint
	Records      int
	SystemEvents int
	Systems      uint64
	// FirstTime and LastTime span the simulation events; both are NaN when
	// the log holds none.
	FirstTime  float64
	LastTime   float64
	DataBytes  int64
	IndexBytes int64
}

// Systems returns the ids of the systems with at least one record whose
// time lies in t. Negative system ids are reserved and never reported.
func (db *DB) Systems(t model.Range[float64]) *roaring.Bitmap {
	bm := roaring.New()
	if db.closed.Load() {
		return bm
	}

	if !t.Constrained() {
		// Jump from one system to the next in the system index.
		ix := db.bySys
		for i := ix.LowerBound(0); i < ix.Len(); {
			sys := ix.At(i).Sys
			bm.Add(uint32(sys))
			i = ix.UpperBound(float64(sys))
		}
		return bm
	}

	ix := db.byTime
	for i, end := ix.LowerBound(t.First()), ix.UpperBound(t.Last()); i < end; i++ {
		if e := ix.At(i); e.Sys >= 0 && t.Contains(e.Time) {
			bm.Add(uint32(e.Sys))
		}
	}
	return bm
}

// Stats returns a summary of the log and its indexes.
func (db *DB) Stats() (Stats, error) {
	if db.closed.Load() {
		return Stats{}, ErrClosed
	}

	st := Stats{
		Path:        db.path,
		Fingerprint: db.fp,
		Records:     db.byTime.Len(),
		Systems:     db.Systems(model.All[float64]()).GetCardinality(),
		FirstTime:   math.NaN(),
		LastTime:    math.NaN(),
		DataBytes:   int64(db.fp.Size),
	}

	// System events and events of reserved negative systems sort first in
	// the system index; only the former count.
	for i := range db.bySys.LowerBound(0) {
		if db.systemEvent(db.bySys.At(i)) {
			st.SystemEvents++
		}
	}

	ix := db.byTime
	for i := 0; i < ix.Len(); i++ {
		if e := ix.At(i); !db.systemEvent(e) {
			st.FirstTime = e.Time
			break
		}
	}
	for i := ix.Len() - 1; i >= 0; i-- {
		if e := ix.At(i); !db.systemEvent(e) {
			st.LastTime = e.Time
			break
		}
	}

	for _, p := range []string{db.byTime.Path(), db.bySys.Path()} {
		fi, err := os.Stat(p)
		if err != nil {
			return Stats{}, err
		}
		st.IndexBytes += fi.Size()
	}
	return st, nil
}

func (db *DB) systemEvent(e index.Entry) bool {
	r, err := record.At(db.payload(), int(e.Offset))
	return err == nil && r.Kind().System()
}

package swarmdb

import (
	"time"

	"github.com/hupe1980/swarmdb/index"
	"github.com/hupe1980/swarmdb/model"
	"github.com/hupe1980/swarmdb/record"
)

// Cursor iterates over the records matching a query. A Cursor is a borrow
// of its DB and must not outlive it.
type Cursor struct {
	db    *DB
	ix    *index.Index
	sys   model.Range[int32]
	t     model.Range[float64]
	begin int
	end   int
	at    int
	prev  int
	err   error

	returned int
	started  time.Time
	reported bool
}

// Query returns a cursor over every record whose system id lies in sys and
// whose time lies in t. System events carry time -1 and system -1 and are
// only returned when both ranges contain those values.
//
// A query constrained on systems only walks the system index; any other
// query walks the time index, narrowed to t when t is constrained. Both
// ranges are checked against every entry.
func (db *DB) Query(sys model.Range[int32], t model.Range[float64]) *Cursor {
	c := &Cursor{db: db, sys: sys, t: t, started: time.Now()}

	switch {
	case sys.Constrained() && !t.Constrained():
		c.ix = db.bySys
		c.begin = c.ix.LowerBound(float64(sys.First()))
		c.end = c.ix.UpperBound(float64(sys.Last()))
	case t.Constrained():
		c.ix = db.byTime
		c.begin = c.ix.LowerBound(t.First())
		c.end = c.ix.UpperBound(t.Last())
	default:
		c.ix = db.byTime
		c.begin, c.end = 0, c.ix.Len()
	}
	c.end = max(c.end, c.begin)
	c.at, c.prev = c.begin, c.begin
	return c
}

// Next returns the next matching record. Once the cursor is exhausted, or
// its DB closed, it returns record.EOF and false.
func (c *Cursor) Next() (record.Record, bool) {
	for c.at < c.end && c.err == nil {
		if c.db.closed.Load() {
			break
		}
		pos := c.at
		e := c.ix.At(pos)
		c.at++
		if !c.sys.Contains(e.Sys) || !c.t.Contains(e.Time) {
			continue
		}
		r, err := record.At(c.db.payload(), int(e.Offset))
		if err != nil {
			c.err = err
			break
		}
		c.prev = pos
		c.returned++
		return r, true
	}
	c.report()
	return record.EOF, false
}

// Unget moves the cursor back so that the next call to Next returns the
// record the previous call returned. It undoes a single Next; calling it
// twice in a row has the effect of calling it once. After Next has reported
// the end of the range, Unget makes the last record available again.
func (c *Cursor) Unget() {
	if c.at == c.prev {
		return
	}
	c.at = c.prev
	c.returned = max(c.returned-1, 0)
}

// Reset rewinds the cursor to the start of its range.
func (c *Cursor) Reset() {
	c.at, c.prev = c.begin, c.begin
	c.err = nil
	c.returned = 0
	c.reported = false
	c.started = time.Now()
}

// Err returns the error that stopped iteration early, if any. It is nil when
// the cursor ran to the end of its range.
func (c *Cursor) Err() error { return c.err }

// Range returns the position range the cursor scans in its index.
func (c *Cursor) Range() (begin, end int) { return c.begin, c.end }

func (c *Cursor) report() {
	if c.reported {
		return
	}
	c.reported = true
	c.db.opts.metricsCollector.RecordQuery(c.returned, time.Since(c.started))
}

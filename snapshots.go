package swarmdb

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/swarmdb/ensemble"
	"github.com/hupe1980/swarmdb/model"
	"github.com/hupe1980/swarmdb/record"
)

// Snapshots reconstructs ensembles from the snapshot records of a log, one
// time window at a time.
type Snapshots struct {
	db     *DB
	cur    *Cursor
	absErr float64
	relErr float64
	seen   *roaring.Bitmap
}

// Snapshots returns a reader over the snapshot records with time in t.
//
// A window is anchored at the time T of the first snapshot not yet consumed
// and extends to T*(1+relErr)+absErr. Every system contributes at most one
// snapshot per window; the first one seen wins.
func (db *DB) Snapshots(t model.Range[float64], absErr, relErr float64) *Snapshots {
	return &Snapshots{
		db:     db,
		cur:    db.Query(model.All[int32](), t),
		absErr: absErr,
		relErr: relErr,
		seen:   roaring.New(),
	}
}

// Next reconstructs the next window into dst. dst is replaced by an ensemble
// sized to the largest system id seen; systems without a snapshot in the
// window are inactive and every active system's time is the window end.
//
// Next returns false with a nil error once no snapshots are left.
func (s *Snapshots) Next(dst *ensemble.Ensemble) (bool, error) {
	var (
		snaps     []record.Snapshot
		started   bool
		windowEnd float64
		nbod      int
		maxSys    int32 = -1
	)
	s.seen.Clear()

	for {
		r, ok := s.cur.Next()
		if !ok {
			if err := s.cur.Err(); err != nil {
				return s.fail(windowEnd, err)
			}
			break
		}
		if r.Kind() != record.KindSnapshot {
			continue
		}
		snap, err := r.Snapshot()
		if err != nil {
			return s.fail(windowEnd, err)
		}

		if !started {
			started = true
			windowEnd = snap.Time*(1+s.relErr) + s.absErr
			nbod = snap.NumBodies()
		} else if snap.Time > windowEnd {
			s.cur.Unget()
			break
		}

		if snap.NumBodies() != nbod {
			return s.fail(windowEnd, &BodyCountError{
				Time:     snap.Time,
				System:   snap.System,
				Expected: nbod,
				Actual:   snap.NumBodies(),
			})
		}
		if snap.System < 0 || !s.seen.CheckedAdd(uint32(snap.System)) {
			continue
		}
		snaps = append(snaps, snap)
		maxSys = max(maxSys, snap.System)
	}

	if len(snaps) == 0 {
		return false, nil
	}

	ens := ensemble.New(nbod, int(maxSys)+1)
	for sys := range ens.NumSys() {
		ens.SetInactive(sys)
	}
	for _, snap := range snaps {
		sys := int(snap.System)
		ens.SetActive(sys)
		ens.SetFlags(sys, snap.Flags)
		for bod := range nbod {
			ens.SetBody(sys, bod, snap.Body(bod))
		}
		ens.SetTime(sys, windowEnd)
	}
	*dst = *ens

	s.db.opts.metricsCollector.RecordSnapshot(len(snaps), nil)
	s.db.opts.logger.LogSnapshot(context.Background(), windowEnd, len(snaps), nil)
	return true, nil
}

// Reset restarts reconstruction from the first window.
func (s *Snapshots) Reset() { s.cur.Reset() }

func (s *Snapshots) fail(windowEnd float64, err error) (bool, error) {
	s.db.opts.metricsCollector.RecordSnapshot(0, err)
	s.db.opts.logger.LogSnapshot(context.Background(), windowEnd, 0, err)
	return false, err
}

package swarmdb

import (
	"errors"

	"github.com/hupe1980/swarmdb/index"
)

// Close releases the mappings held by db. Records and cursors obtained from
// db must not be used afterwards; cursors report end of stream.
//
// Calling Close more than once is a no-op.
func (db *DB) Close() error {
	if db == nil || db.closed.Swap(true) {
		return nil
	}
	var errs []error
	for _, ix := range []*index.Index{db.byTime, db.bySys} {
		if ix != nil {
			errs = append(errs, ix.Close())
		}
	}
	if db.data != nil {
		errs = append(errs, db.data.Close())
	}
	return errors.Join(errs...)
}

package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/internal/mapfile"
	"github.com/hupe1980/swarmdb/internal/mmap"
)

// ErrStale is returned by OpenFresh when an index was built from a different
// version of its log.
var ErrStale = errors.New("index: stale")

// StaleError describes a fingerprint mismatch.
type StaleError struct {
	Path  string
	Want  format.Fingerprint
	Found format.Fingerprint
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("%s: index is stale: built from %s, log is %s", e.Path, e.Found, e.Want)
}

func (e *StaleError) Unwrap() error { return ErrStale }

// Index is an opened, read-only index file.
type Index struct {
	f     *mapfile.File
	order Order
	data  []byte
}

// Open maps the index file at path. The header must carry order's type.
func Open(path string, order Order) (*Index, error) {
	f, err := mapfile.OpenIndex(path, order.Type(), mapfile.ReadOnly, true)
	if err != nil {
		return nil, err
	}
	if f.Size()%EntrySize != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %d payload bytes: %w", path, f.Size(), ErrEntryCount)
	}
	_ = f.Advise(mmap.AccessRandom)
	return &Index{f: f, order: order, data: f.Payload()}, nil
}

// OpenFresh opens the order's index of datafile and checks that it was built
// from a log with fingerprint fp. A mismatch yields a *StaleError.
func OpenFresh(datafile string, order Order, fp format.Fingerprint) (*Index, error) {
	path := order.Path(datafile)
	ix, err := Open(path, order)
	if err != nil {
		return nil, err
	}
	if got := ix.Fingerprint(); got != fp {
		_ = ix.Close()
		return nil, &StaleError{Path: path, Want: fp, Found: got}
	}
	return ix, nil
}

// Order returns the order the index is sorted by.
func (ix *Index) Order() Order { return ix.order }

// Path returns the index file path.
func (ix *Index) Path() string { return ix.f.Path() }

// Fingerprint returns the fingerprint of the log the index was built from.
func (ix *Index) Fingerprint() format.Fingerprint { return ix.f.IndexHeader().Fingerprint() }

// Len returns the number of entries. It returns 0 after Close.
func (ix *Index) Len() int {
	if ix.f.Closed() {
		return 0
	}
	return len(ix.data) / EntrySize
}

// At returns entry i.
func (ix *Index) At(i int) Entry { return decodeEntry(ix.data[i*EntrySize:]) }

// LowerBound returns the position of the first entry whose primary key is
// not less than key.
func (ix *Index) LowerBound(key float64) int {
	return sort.Search(ix.Len(), func(i int) bool { return ix.order.Key(ix.At(i)) >= key })
}

// UpperBound returns the position of the first entry whose primary key is
// greater than key.
func (ix *Index) UpperBound(key float64) int {
	return sort.Search(ix.Len(), func(i int) bool { return ix.order.Key(ix.At(i)) > key })
}

// Close unmaps the index. Calling Close more than once is a no-op.
func (ix *Index) Close() error { return ix.f.Close() }

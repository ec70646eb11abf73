package index

import (
	"cmp"

	"github.com/hupe1980/swarmdb/format"
)

// Order describes one index file: where it lives, how it is tagged and how
// its entries are ordered.
type Order struct {
	// Name is a short human-readable name.
	Name string
	// Suffix is appended to the log path to form the index path.
	Suffix string
	// Tag is the full type tag written to the index header.
	Tag string
	// Compare orders entries. Ties are impossible for entries of one log
	// since offsets are unique.
	Compare func(a, b Entry) int
	// Key returns the primary key of an entry, the field range lookups
	// search on.
	Key func(e Entry) float64
}

// Type returns the type portion of the tag.
func (o Order) Type() string {
	h := format.NewHeader(o.Tag, 0, 0)
	return h.Type()
}

// Less reports whether a sorts before b.
func (o Order) Less(a, b Entry) bool { return o.Compare(a, b) < 0 }

// Path returns the index path for datafile.
func (o Order) Path(datafile string) string { return datafile + o.Suffix }

var (
	// TimeOrder sorts entries by (time, system, offset).
	TimeOrder = Order{
		Name:   "time",
		Suffix: ".time.idx",
		Tag:    format.TypeTimeIndex + " // Index sorted by time",
		Compare: func(a, b Entry) int {
			if c := cmp.Compare(a.Time, b.Time); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Sys, b.Sys); c != 0 {
				return c
			}
			return cmp.Compare(a.Offset, b.Offset)
		},
		Key: func(e Entry) float64 { return e.Time },
	}

	// SystemOrder sorts entries by (system, time, offset).
	SystemOrder = Order{
		Name:   "system",
		Suffix: ".sys.idx",
		Tag:    format.TypeSystemIndex + " // Index sorted by system",
		Compare: func(a, b Entry) int {
			if c := cmp.Compare(a.Sys, b.Sys); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Time, b.Time); c != 0 {
				return c
			}
			return cmp.Compare(a.Offset, b.Offset)
		},
		Key: func(e Entry) float64 { return float64(e.Sys) },
	}
)

// Orders lists every index a log has.
func Orders() []Order { return []Order{TimeOrder, SystemOrder} }

package index

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/internal/fs"
	"github.com/hupe1980/swarmdb/internal/mapfile"
	"github.com/hupe1980/swarmdb/internal/mmap"
	"github.com/hupe1980/swarmdb/record"
)

var (
	// ErrEntryCount is returned when an index file does not hold exactly one
	// entry per added record.
	ErrEntryCount = errors.New("index: entry count mismatch")
	// ErrIndexOrder is returned when the in-place sort left adjacent entries
	// out of order.
	ErrIndexOrder = errors.New("index: entries out of order after sort")
)

// Options configures Build.
type Options struct {
	// FS is the file system index files are written through.
	FS fs.FileSystem
	// Logger receives one record per built index.
	Logger *slog.Logger
	// BufferSize is the size of the entry write buffer.
	BufferSize int
}

// DefaultOptions are the options used by Build.
var DefaultOptions = Options{
	FS:         fs.Default,
	BufferSize: 256 << 10,
}

// Build creates the index files for the given orders of the sorted log at
// datafile. Existing index files are replaced.
func Build(datafile string, orders []Order, optFns ...func(o *Options)) error {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.FS == nil {
		opts.FS = fs.Default
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()

	fi, err := opts.FS.Stat(datafile)
	if err != nil {
		return fmt.Errorf("stat %s: %w", datafile, err)
	}
	fp := format.FingerprintOf(fi)

	src, err := mapfile.Open(datafile, format.TypeSorted, mapfile.ReadOnly, true)
	if err != nil {
		return err
	}
	defer src.Close()
	_ = src.Advise(mmap.AccessSequential)

	creators := make([]*creator, 0, len(orders))
	defer func() {
		for _, c := range creators {
			c.abort()
		}
	}()
	for _, o := range orders {
		c, err := newCreator(opts, datafile, o, fp)
		if err != nil {
			return err
		}
		creators = append(creators, c)
	}

	s := record.NewStream(src.Payload())
	for r, ok := s.Next(); ok; r, ok = s.Next() {
		for _, c := range creators {
			if err := c.AddEntry(uint64(s.Offset()), r); err != nil {
				return err
			}
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("index %s: %w", datafile, err)
	}

	for _, c := range creators {
		if err := c.Finish(); err != nil {
			return err
		}
		logger.Info("index built",
			"index", c.path,
			"order", c.order.Name,
			"entries", c.n,
			"elapsed", time.Since(start),
		)
	}
	creators = nil
	return nil
}

// creator writes one index file. Entries are appended in log order and sorted
// by Finish.
type creator struct {
	fsys  fs.FileSystem
	order Order
	path  string
	tmp   string
	f     fs.File
	w     *bufio.Writer
	buf   []byte
	n     int
	done  bool
}

func newCreator(opts Options, datafile string, order Order, fp format.Fingerprint) (*creator, error) {
	path := order.Path(datafile)
	tmp := path + ".tmp"

	f, err := fs.Create(opts.FS, tmp)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", tmp, err)
	}
	c := &creator{
		fsys:  opts.FS,
		order: order,
		path:  path,
		tmp:   tmp,
		f:     f,
		w:     bufio.NewWriterSize(f, max(opts.BufferSize, 4096)),
		buf:   make([]byte, 0, EntrySize),
	}

	hdr := format.NewIndexHeader(order.Tag, fp)
	if _, err := hdr.WriteTo(c.w); err != nil {
		c.abort()
		return nil, fmt.Errorf("write %s: %w", tmp, err)
	}
	return c, nil
}

// AddEntry appends the entry for the record at offset off.
func (c *creator) AddEntry(off uint64, r record.Record) error {
	t, sys := r.TimeSys()
	c.buf = appendEntry(c.buf[:0], Entry{Time: t, Sys: sys, Offset: off})
	if _, err := c.w.Write(c.buf); err != nil {
		return fmt.Errorf("write %s: %w", c.tmp, err)
	}
	c.n++
	return nil
}

// Finish closes the entry stream, sorts the file in place and moves it to
// its final path.
func (c *creator) Finish() error {
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", c.tmp, err)
	}
	if err := c.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", c.tmp, err)
	}
	err := c.f.Close()
	c.f = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", c.tmp, err)
	}

	if err := sortFile(c.tmp, c.order, c.n); err != nil {
		return err
	}

	if err := c.fsys.Rename(c.tmp, c.path); err != nil {
		return fmt.Errorf("rename %s: %w", c.path, err)
	}
	c.done = true
	return nil
}

func (c *creator) abort() {
	if c.done {
		return
	}
	if c.f != nil {
		_ = c.f.Close()
		c.f = nil
	}
	_ = c.fsys.Remove(c.tmp)
	c.done = true
}

func sortFile(path string, order Order, n int) error {
	mf, err := mapfile.OpenIndex(path, order.Type(), mapfile.ReadWrite, true)
	if err != nil {
		return err
	}
	defer mf.Close()

	es := entries{data: mf.Payload(), order: order}
	if mf.Size() != n*EntrySize {
		return fmt.Errorf("%s: %d bytes for %d entries: %w", path, mf.Size(), n, ErrEntryCount)
	}

	sort.Sort(es)

	for i := 1; i < es.Len(); i++ {
		if order.Less(es.at(i), es.at(i-1)) {
			return fmt.Errorf("%s: entry %d %s after %s: %w", path, i, es.at(i), es.at(i-1), ErrIndexOrder)
		}
	}

	if err := mf.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return mf.Close()
}

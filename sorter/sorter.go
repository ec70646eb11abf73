// Package sorter rewrites an unsorted log into a log whose records are
// physically ordered by (time, system, original position).
//
// The sort materializes one small entry per record in memory and writes the
// record bytes in their new order to a new file; records are never permuted
// in place. Logs whose entry table does not fit in memory are out of reach;
// a streaming merge sort would lift that limit.
package sorter

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"
	"unsafe"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/internal/fs"
	"github.com/hupe1980/swarmdb/internal/mapfile"
	"github.com/hupe1980/swarmdb/internal/mmap"
	"github.com/hupe1980/swarmdb/internal/resource"
	"github.com/hupe1980/swarmdb/record"
)

// SortedTag is the full type tag written to sorted logs.
const SortedTag = format.TypeSorted + " // Output file sorted by time"

var (
	// ErrLengthMismatch is returned when the records of a log do not exactly
	// cover its payload.
	ErrLengthMismatch = errors.New("sorter: record lengths do not cover the payload")
	// ErrShortWrite is returned when the sorted file has an unexpected size.
	ErrShortWrite = errors.New("sorter: sorted file has unexpected size")
)

// Options configures Sort.
type Options struct {
	// FS is the file system the sorted file is written through.
	FS fs.FileSystem
	// Resources, when set, bounds the memory of the in-memory entry table.
	Resources *resource.Controller
	// BufferSize is the size of the output write buffer.
	BufferSize int
}

// DefaultOptions are the options used by Sort.
var DefaultOptions = Options{
	FS:         fs.Default,
	BufferSize: 1 << 20,
}

// Result summarizes a sort.
type Result struct {
	Records int
	Bytes   uint64
	Elapsed time.Duration
}

type entry struct {
	t   float64
	sys int32
	off int
	n   int
}

const entrySize = int64(unsafe.Sizeof(entry{}))

func compareEntries(a, b entry) int {
	if c := cmp.Compare(a.t, b.t); c != 0 {
		return c
	}
	if c := cmp.Compare(a.sys, b.sys); c != 0 {
		return c
	}
	return cmp.Compare(a.off, b.off)
}

// Sort reads the unsorted log in and writes the sorted log out.
func Sort(out, in string, optFns ...func(o *Options)) (Result, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.FS == nil {
		opts.FS = fs.Default
	}
	start := time.Now()

	src, err := mapfile.Open(in, format.TypeUnsorted, mapfile.ReadOnly, true)
	if err != nil {
		return Result{}, err
	}
	defer src.Close()
	_ = src.Advise(mmap.AccessSequential)

	data := src.Payload()
	expected := uint64(len(data))
	if hdr := src.Header(); hdr.KnownLength() {
		expected = hdr.PayloadLength
	}
	entries, err := scan(in, data, expected, opts.Resources)
	if err != nil {
		return Result{}, err
	}
	defer opts.Resources.ReleaseMemory(int64(cap(entries)) * entrySize)

	slices.SortFunc(entries, compareEntries)

	if err := write(opts, out, data, entries); err != nil {
		return Result{}, err
	}

	return Result{
		Records: len(entries),
		Bytes:   uint64(len(data)),
		Elapsed: time.Since(start),
	}, nil
}

// scan collects one entry per record. The entry table is charged against rc
// as it grows.
func scan(path string, data []byte, expected uint64, rc *resource.Controller) ([]entry, error) {
	var (
		entries []entry
		total   int
	)
	s := record.NewStream(data)
	for r, ok := s.Next(); ok; r, ok = s.Next() {
		if len(entries) == cap(entries) {
			grown := max(2*cap(entries), 1024)
			if err := rc.AcquireMemory(int64(grown-cap(entries)) * entrySize); err != nil {
				rc.ReleaseMemory(int64(cap(entries)) * entrySize)
				return nil, fmt.Errorf("sort %s: %d records indexed: %w", path, len(entries), err)
			}
			entries = slices.Grow(entries, grown-len(entries))
			entries = entries[:len(entries):grown]
		}
		t, sys := r.TimeSys()
		entries = append(entries, entry{t: t, sys: sys, off: s.Offset(), n: r.Len()})
		total += r.Len()
	}
	if err := s.Err(); err != nil {
		rc.ReleaseMemory(int64(cap(entries)) * entrySize)
		return nil, fmt.Errorf("sort %s: %w", path, err)
	}
	if uint64(total) != expected {
		rc.ReleaseMemory(int64(cap(entries)) * entrySize)
		return nil, fmt.Errorf("sort %s: records cover %d bytes, header says %d: %w", path, total, expected, ErrLengthMismatch)
	}
	return entries, nil
}

func write(opts Options, out string, data []byte, entries []entry) (err error) {
	tmp := out + ".tmp"
	f, err := fs.Create(opts.FS, tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = opts.FS.Remove(tmp)
		}
	}()

	bw := bufio.NewWriterSize(f, max(opts.BufferSize, 4096))

	hdr := format.NewHeader(SortedTag, 0, uint64(len(data)))
	if _, err = hdr.WriteTo(bw); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	for _, e := range entries {
		if _, err = bw.Write(data[e.off : e.off+e.n]); err != nil {
			return fmt.Errorf("write %s: %w", tmp, err)
		}
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", tmp, err)
	}
	if want := int64(format.HeaderSize + len(data)); fi.Size() != want {
		err = fmt.Errorf("%s: %d bytes, want %d: %w", tmp, fi.Size(), want, ErrShortWrite)
		return err
	}

	if err = f.Close(); err != nil {
		_ = opts.FS.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = opts.FS.Rename(tmp, out); err != nil {
		_ = opts.FS.Remove(tmp)
		return fmt.Errorf("rename %s: %w", out, err)
	}
	return nil
}

// Package writer turns the record stream of a running simulation into a
// sorted, indexed swarmdb log.
//
// Producers hand encoded records to a Writer. The Binary writer appends them
// to F.raw; closing it sorts F.raw into F, removes F.raw and opens F once so
// its index files exist before anyone reads it.
package writer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hupe1980/swarmdb"
	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/internal/fs"
	"github.com/hupe1980/swarmdb/internal/resource"
	"github.com/hupe1980/swarmdb/sorter"
)

// UnsortedTag is the full type tag written to raw logs.
const UnsortedTag = format.TypeUnsorted + " // Unsorted output file"

// RawSuffix is appended to the log path to name the raw log.
const RawSuffix = ".raw"

var (
	// ErrClosed is returned by Process after Close.
	ErrClosed = errors.New("writer: closed")
	// ErrConfig is returned by FromConfig for a malformed configuration.
	ErrConfig = errors.New("writer: bad configuration")
)

// Writer consumes blocks of encoded records.
type Writer interface {
	// Process appends data, a sequence of whole records, to the output.
	Process(data []byte) error
	// Close finalizes the output.
	Close() error
}

// Options configures a Binary writer.
type Options struct {
	// FS is the file system the raw and sorted logs are written through.
	FS fs.FileSystem
	// Logger receives progress notices.
	Logger *slog.Logger
	// Resources bounds the memory of the final sort.
	Resources *resource.Controller
	// BufferSize is the size of the raw log write buffer.
	BufferSize int
	// SkipIndex leaves index creation to the first reader.
	SkipIndex bool
}

// DefaultOptions are the options used by NewBinary.
var DefaultOptions = Options{
	FS:         fs.Default,
	BufferSize: 1 << 20,
}

// Binary writes records to a raw log and finalizes it on Close.
type Binary struct {
	opts   Options
	path   string
	raw    string
	f      fs.File
	w      *bufio.Writer
	mu     sync.Mutex
	closed bool
}

// NewBinary creates path+".raw" and writes its header.
func NewBinary(path string, optFns ...func(o *Options)) (*Binary, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.FS == nil {
		opts.FS = fs.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	raw := path + RawSuffix
	f, err := fs.Create(opts.FS, raw)
	if err != nil {
		return nil, fmt.Errorf("could not open %s for writing: %w", raw, err)
	}

	b := &Binary{
		opts: opts,
		path: path,
		raw:  raw,
		f:    f,
		w:    bufio.NewWriterSize(f, max(opts.BufferSize, 4096)),
	}

	hdr := format.NewHeader(UnsortedTag, 0, format.UnknownLength)
	if _, err := hdr.WriteTo(b.w); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write %s: %w", raw, err)
	}
	return b, nil
}

// Path returns the path of the sorted log Close produces.
func (b *Binary) Path() string { return b.path }

// Process appends data verbatim to the raw log.
func (b *Binary) Process(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if _, err := b.w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", b.raw, err)
	}
	return nil
}

// Close flushes the raw log, sorts it into the final log, removes the raw
// log and builds the indexes. The raw log is kept when sorting fails.
func (b *Binary) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.w.Flush(); err != nil {
		_ = b.f.Close()
		return fmt.Errorf("write %s: %w", b.raw, err)
	}
	if err := b.f.Sync(); err != nil {
		_ = b.f.Close()
		return fmt.Errorf("sync %s: %w", b.raw, err)
	}
	if err := b.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", b.raw, err)
	}

	logger := &swarmdb.Logger{Logger: b.opts.Logger}
	res, err := sorter.Sort(b.path, b.raw, func(o *sorter.Options) {
		o.FS = b.opts.FS
		o.Resources = b.opts.Resources
	})
	logger.LogSort(context.Background(), b.raw, b.path, res.Records, res.Elapsed, err)
	if err != nil {
		return err
	}
	if err := b.opts.FS.Remove(b.raw); err != nil {
		return fmt.Errorf("remove %s: %w", b.raw, err)
	}

	if b.opts.SkipIndex {
		return nil
	}
	db, err := swarmdb.Open(b.path, swarmdb.WithLogger(logger))
	if err != nil {
		return err
	}
	return db.Close()
}

// Null discards everything written to it.
type Null struct{}

// Process implements Writer.
func (Null) Process([]byte) error { return nil }

// Close implements Writer.
func (Null) Close() error { return nil }

// FromConfig creates a writer from a one-line configuration: "null", or
// "binary <file>".
func FromConfig(cfg string, optFns ...func(o *Options)) (Writer, error) {
	fields := strings.Fields(cfg)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrConfig)
	}
	switch fields[0] {
	case "null":
		return Null{}, nil
	case "binary":
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: expected 'binary <filename.bin>', got %q", ErrConfig, cfg)
		}
		return NewBinary(fields[1], optFns...)
	default:
		return nil, fmt.Errorf("%w: unknown writer %q", ErrConfig, fields[0])
	}
}

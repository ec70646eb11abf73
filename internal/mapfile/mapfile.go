// Package mapfile opens swarmdb files as memory mappings and exposes their
// header and payload.
package mapfile

import (
	"fmt"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/internal/mmap"
)

// Mode re-exports the mapping protection.
type Mode = mmap.Mode

const (
	ReadOnly  = mmap.ReadOnly
	ReadWrite = mmap.ReadWrite
)

// File is a mapped file with a header. It owns the mapping; Payload and
// Header results are borrows valid until Close.
type File struct {
	path    string
	m       *mmap.Mapping
	payload *mmap.Region
	hdr     format.Header
	idx     format.IndexHeader
}

// Open maps path and decodes its file header. With validate set the header
// must be compatible with expectedType.
func Open(path, expectedType string, mode Mode, validate bool) (*File, error) {
	return open(path, expectedType, mode, validate, format.HeaderSize)
}

// OpenIndex maps an index file and decodes its index header.
func OpenIndex(path, expectedType string, mode Mode, validate bool) (*File, error) {
	return open(path, expectedType, mode, validate, format.IndexHeaderSize)
}

func open(path, expectedType string, mode Mode, validate bool, hdrSize int) (*File, error) {
	m, err := mmap.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}

	f := &File{path: path, m: m}
	data := m.Bytes()

	if hdrSize == format.IndexHeaderSize {
		err = f.idx.UnmarshalBinary(data)
		f.hdr = f.idx.Header
	} else {
		err = f.hdr.UnmarshalBinary(data)
	}
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if validate {
		if err := format.Check(path, expectedType, &f.hdr); err != nil {
			_ = m.Close()
			return nil, err
		}
	}

	if f.payload, err = m.Tail(hdrSize); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Header returns the decoded file header.
func (f *File) Header() *format.Header { return &f.hdr }

// IndexHeader returns the decoded index header. It is only meaningful for
// files opened with OpenIndex.
func (f *File) IndexHeader() *format.IndexHeader { return &f.idx }

// Payload returns the bytes following the header. It returns nil after Close.
func (f *File) Payload() []byte { return f.payload.Bytes() }

// Size returns the payload length in bytes.
func (f *File) Size() int { return f.payload.Len() }

// Closed reports whether the file has been released.
func (f *File) Closed() bool { return f.m.Closed() }

// Advise passes an access hint for the payload pages. The header page is
// covered as well when the payload starts inside it.
func (f *File) Advise(p mmap.AccessPattern) error { return f.payload.Advise(p) }

// Flush writes modified payload pages of a read-write mapping to disk.
// The header is never written through the mapping.
func (f *File) Flush() error { return f.payload.Flush() }

// Close unmaps the file. Calling Close more than once is a no-op.
func (f *File) Close() error { return f.m.Close() }

package mmap

import "os"

// Region is a window into a Mapping, typically the payload that follows a
// file header. It borrows the parent's memory and becomes empty when the
// parent is closed.
type Region struct {
	parent *Mapping
	offset int
	size   int
}

// Region returns the window [offset, offset+size) of the mapping.
func (m *Mapping) Region(offset, size int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if offset < 0 || size < 0 || offset+size > m.size {
		return nil, ErrOutOfBounds
	}
	return &Region{parent: m, offset: offset, size: size}, nil
}

// Tail returns the window from offset to the end of the mapping.
func (m *Mapping) Tail(offset int) (*Region, error) {
	return m.Region(offset, m.size-offset)
}

// Bytes returns the window, or nil once the parent is closed.
func (r *Region) Bytes() []byte {
	if r.parent.closed.Load() {
		return nil
	}
	if r.parent.data == nil {
		return []byte{}
	}
	return r.parent.data[r.offset : r.offset+r.size]
}

// Offset returns the position of the window inside the mapping.
func (r *Region) Offset() int { return r.offset }

// Len returns the size of the window in bytes.
func (r *Region) Len() int { return r.size }

// Advise passes an access hint for the pages covering the window.
func (r *Region) Advise(pattern AccessPattern) error {
	pages, err := r.pages()
	if err != nil || pages == nil {
		return err
	}
	return osAdvise(pages, pattern)
}

// Flush writes the modified pages covering the window back to the file.
func (r *Region) Flush() error {
	if r.parent.mode != ReadWrite {
		return ErrReadOnly
	}
	pages, err := r.pages()
	if err != nil || pages == nil {
		return err
	}
	return osFlush(pages)
}

// pages widens the window to page boundaries, which madvise and msync
// require.
func (r *Region) pages() ([]byte, error) {
	if r.parent.closed.Load() {
		return nil, ErrClosed
	}
	if r.size == 0 || r.parent.data == nil {
		return nil, nil
	}
	ps := os.Getpagesize()
	start := r.offset - r.offset%ps
	return r.parent.data[start : r.offset+r.size], nil
}

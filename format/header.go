package format

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// HeaderSize is the encoded size of Header.
	HeaderSize = 96
	// IndexHeaderSize is the encoded size of IndexHeader.
	IndexHeaderSize = 112

	// UnknownLength marks a payload whose length was not known at creation.
	UnknownLength = ^uint64(0)

	typeTagSize = 76
)

// File type tags used by swarmdb.
const (
	TypeUnsorted    = "unsorted_output"
	TypeSorted      = "T_sorted_output"
	TypeTimeIndex   = "T_sorted_index"
	TypeSystemIndex = "sys_sorted_index"
)

var (
	magic   = [6]byte{'S', 'W', 'A', 'R', 'M', 0}
	version = [2]byte{'0', 0}
)

var (
	// ErrShortHeader is returned when fewer bytes than a header are available.
	ErrShortHeader = errors.New("format: short header")
	// ErrIncompatible is returned when a header fails the compatibility check.
	ErrIncompatible = errors.New("format: incompatible file")
)

// IncompatibleError describes a header that does not match the expected type.
type IncompatibleError struct {
	Path     string
	Expected string
	Actual   string
	BadMagic bool
}

func (e *IncompatibleError) Error() string {
	if e.BadMagic {
		return fmt.Sprintf("%s: not a swarm file or unsupported version (expecting %q)", e.Path, e.Expected)
	}
	return fmt.Sprintf("%s: input file corrupted or incompatible: expecting %q, got %q", e.Path, e.Expected, e.Actual)
}

func (e *IncompatibleError) Unwrap() error { return ErrIncompatible }

// Header is the common file header.
type Header struct {
	Magic         [6]byte
	Version       [2]byte
	TypeTag       [typeTagSize]byte
	Flags         uint32
	PayloadLength uint64
}

// NewHeader returns a header for the given type tag. Tags longer than 75
// bytes are truncated.
func NewHeader(typeTag string, flags uint32, payloadLength uint64) Header {
	h := Header{
		Magic:         magic,
		Version:       version,
		Flags:         flags,
		PayloadLength: payloadLength,
	}
	copy(h.TypeTag[:typeTagSize-1], typeTag)
	return h
}

// Tag returns the full type tag including any description.
func (h *Header) Tag() string {
	tag := h.TypeTag[:]
	if i := bytes.IndexByte(tag, 0); i >= 0 {
		tag = tag[:i]
	}
	return string(tag)
}

// Type returns the trimmed part of the type tag before any "//".
func (h *Header) Type() string {
	tag := h.Tag()
	if i := strings.Index(tag, "//"); i >= 0 {
		tag = tag[:i]
	}
	return strings.TrimSpace(tag)
}

// KnownLength reports whether PayloadLength was recorded.
func (h *Header) KnownLength() bool {
	return h.PayloadLength != UnknownLength
}

// Compatible reports whether actual satisfies h as the expected header.
func (h *Header) Compatible(actual *Header) bool {
	if h.Magic != actual.Magic || h.Version != actual.Version {
		return false
	}
	t := h.Type()
	return t == "" || t == actual.Type()
}

// Check validates actual against the expected type tag.
func Check(path, expectedType string, actual *Header) error {
	want := NewHeader(expectedType, 0, UnknownLength)
	if want.Compatible(actual) {
		return nil
	}
	return &IncompatibleError{
		Path:     path,
		Expected: want.Type(),
		Actual:   actual.Type(),
		BadMagic: want.Magic != actual.Magic || want.Version != actual.Version,
	}
}

// MarshalBinary encodes the header into HeaderSize bytes.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf, nil
}

func (h *Header) put(buf []byte) {
	copy(buf[0:6], h.Magic[:])
	copy(buf[6:8], h.Version[:])
	copy(buf[8:84], h.TypeTag[:])
	binary.LittleEndian.PutUint32(buf[84:88], h.Flags)
	binary.LittleEndian.PutUint64(buf[88:96], h.PayloadLength)
}

// UnmarshalBinary decodes a header from the first HeaderSize bytes of data.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrShortHeader
	}
	copy(h.Magic[:], data[0:6])
	copy(h.Version[:], data[6:8])
	copy(h.TypeTag[:], data[8:84])
	h.Flags = binary.LittleEndian.Uint32(data[84:88])
	h.PayloadLength = binary.LittleEndian.Uint64(data[88:96])
	return nil
}

// WriteTo writes the encoded header to w.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	buf, _ := h.MarshalBinary()
	n, err := w.Write(buf)
	return int64(n), err
}

// IndexHeader is the header of an index file. SourceMTime and SourceSize
// fingerprint the log file the index was built from.
type IndexHeader struct {
	Header
	SourceMTime uint64
	SourceSize  uint64
}

// NewIndexHeader returns an index header for the given type and fingerprint.
func NewIndexHeader(typeTag string, fp Fingerprint) IndexHeader {
	return IndexHeader{
		Header:      NewHeader(typeTag, 0, UnknownLength),
		SourceMTime: fp.MTime,
		SourceSize:  fp.Size,
	}
}

// Fingerprint returns the stored source fingerprint.
func (h *IndexHeader) Fingerprint() Fingerprint {
	return Fingerprint{MTime: h.SourceMTime, Size: h.SourceSize}
}

// MarshalBinary encodes the index header into IndexHeaderSize bytes.
func (h *IndexHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, IndexHeaderSize)
	h.put(buf)
	binary.LittleEndian.PutUint64(buf[96:104], h.SourceMTime)
	binary.LittleEndian.PutUint64(buf[104:112], h.SourceSize)
	return buf, nil
}

// UnmarshalBinary decodes an index header from data.
func (h *IndexHeader) UnmarshalBinary(data []byte) error {
	if len(data) < IndexHeaderSize {
		return ErrShortHeader
	}
	if err := h.Header.UnmarshalBinary(data); err != nil {
		return err
	}
	h.SourceMTime = binary.LittleEndian.Uint64(data[96:104])
	h.SourceSize = binary.LittleEndian.Uint64(data[104:112])
	return nil
}

// WriteTo writes the encoded index header to w.
func (h *IndexHeader) WriteTo(w io.Writer) (int64, error) {
	buf, _ := h.MarshalBinary()
	n, err := w.Write(buf)
	return int64(n), err
}

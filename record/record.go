package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/swarmdb/model"
)

// Kind identifies the type of a record.
type Kind int32

const (
	// KindEOF is the end-of-stream sentinel.
	KindEOF Kind = -1
	// KindMessage is a free-form text message from a producer.
	KindMessage Kind = -2
	// KindSnapshot captures the full state of one system.
	KindSnapshot Kind = 1
)

// System reports whether records of this kind have no (time, system) prefix.
func (k Kind) System() bool { return k < 0 }

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "eof"
	case KindMessage:
		return "message"
	case KindSnapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("kind(%d)", int32(k))
	}
}

const (
	// HeaderSize is the size of the record header.
	HeaderSize = 8
	// EventPrefixSize is the size of the (time, system) payload prefix.
	EventPrefixSize = 12

	snapshotFixedSize = HeaderSize + EventPrefixSize + 8 + 4
)

var (
	// ErrMalformed is returned for records whose length or layout is invalid.
	ErrMalformed = errors.New("record: malformed record")
	// ErrNotSnapshot is returned when decoding a non-snapshot record as a snapshot.
	ErrNotSnapshot = errors.New("record: not a snapshot")
)

// MalformedError describes where a malformed record was found.
type MalformedError struct {
	Offset int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("record: malformed record at offset %d: %s", e.Offset, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

// Record is a view of one encoded record.
type Record []byte

// EOF is the record returned by cursors once they are exhausted.
var EOF = Record{0xff, 0xff, 0xff, 0xff, HeaderSize, 0, 0, 0}

// At returns the record starting at off in data.
func At(data []byte, off int) (Record, error) {
	if off < 0 || off+HeaderSize > len(data) {
		return nil, &MalformedError{Offset: off, Reason: "header out of bounds"}
	}
	n := int(binary.LittleEndian.Uint32(data[off+4:]))
	if err := checkLength(Kind(int32(binary.LittleEndian.Uint32(data[off:]))), n, len(data)-off); err != "" {
		return nil, &MalformedError{Offset: off, Reason: err}
	}
	return Record(data[off : off+n]), nil
}

func checkLength(kind Kind, n, avail int) string {
	switch {
	case n < HeaderSize:
		return fmt.Sprintf("length %d shorter than header", n)
	case n > avail:
		return fmt.Sprintf("length %d exceeds remaining %d bytes", n, avail)
	case !kind.System() && n < HeaderSize+EventPrefixSize:
		return fmt.Sprintf("event of length %d has no time/system prefix", n)
	}
	return ""
}

// Kind returns the record kind.
func (r Record) Kind() Kind {
	return Kind(int32(binary.LittleEndian.Uint32(r)))
}

// Len returns the total encoded length including the header.
func (r Record) Len() int {
	return int(binary.LittleEndian.Uint32(r[4:]))
}

// Payload returns the bytes following the header.
func (r Record) Payload() []byte {
	return r[HeaderSize:r.Len()]
}

// IsEOF reports whether r is the end-of-stream sentinel.
func (r Record) IsEOF() bool {
	return r.Kind() == KindEOF
}

// TimeSys returns the simulation time and system id of the record.
// System events report (-1, -1).
func (r Record) TimeSys() (float64, int32) {
	if r.Kind().System() {
		return -1, -1
	}
	t := math.Float64frombits(binary.LittleEndian.Uint64(r[HeaderSize:]))
	sys := int32(binary.LittleEndian.Uint32(r[HeaderSize+8:]))
	return t, sys
}

// Body returns the payload after the (time, system) prefix, or the whole
// payload for system events.
func (r Record) Body() []byte {
	p := r.Payload()
	if r.Kind().System() {
		return p
	}
	return p[EventPrefixSize:]
}

func (r Record) String() string {
	if r.Kind().System() {
		return fmt.Sprintf("%s len=%d", r.Kind(), r.Len())
	}
	t, sys := r.TimeSys()
	return fmt.Sprintf("%s t=%g sys=%d len=%d", r.Kind(), t, sys, r.Len())
}

// Snapshot is a decoded view of a snapshot record.
type Snapshot struct {
	Time   float64
	System int32
	Flags  int64
	bodies []byte
	nbod   int
}

// Snapshot decodes r as a snapshot record.
func (r Record) Snapshot() (Snapshot, error) {
	if r.Kind() != KindSnapshot {
		return Snapshot{}, ErrNotSnapshot
	}
	if r.Len() < snapshotFixedSize {
		return Snapshot{}, &MalformedError{Reason: "snapshot shorter than its fixed fields"}
	}
	t, sys := r.TimeSys()
	p := r[HeaderSize+EventPrefixSize:]
	s := Snapshot{
		Time:   t,
		System: sys,
		Flags:  int64(binary.LittleEndian.Uint64(p)),
		nbod:   int(int32(binary.LittleEndian.Uint32(p[8:]))),
	}
	if s.nbod < 0 || snapshotFixedSize+s.nbod*model.BodySize > r.Len() {
		return Snapshot{}, &MalformedError{Reason: fmt.Sprintf("snapshot with %d bodies does not fit in %d bytes", s.nbod, r.Len())}
	}
	s.bodies = r[snapshotFixedSize : snapshotFixedSize+s.nbod*model.BodySize]
	return s, nil
}

// NumBodies returns the number of bodies in the snapshot.
func (s Snapshot) NumBodies() int { return s.nbod }

// Body decodes body i.
func (s Snapshot) Body(i int) model.Body {
	b := s.bodies[i*model.BodySize:]
	f := func(k int) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b[8*k:])) }
	return model.Body{
		Mass: f(0),
		X:    f(1), Y: f(2), Z: f(3),
		VX: f(4), VY: f(5), VZ: f(6),
	}
}

// Bodies decodes all bodies.
func (s Snapshot) Bodies() []model.Body {
	out := make([]model.Body, s.nbod)
	for i := range out {
		out[i] = s.Body(i)
	}
	return out
}

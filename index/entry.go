package index

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EntrySize is the encoded size of an Entry.
const EntrySize = 24

// Entry locates one record of a log.
type Entry struct {
	Time   float64
	Sys    int32
	Offset uint64 // relative to the start of the log payload
}

func (e Entry) String() string {
	return fmt.Sprintf("{t=%g sys=%d off=%d}", e.Time, e.Sys, e.Offset)
}

func decodeEntry(b []byte) Entry {
	return Entry{
		Time:   math.Float64frombits(binary.LittleEndian.Uint64(b)),
		Sys:    int32(binary.LittleEndian.Uint32(b[8:])),
		Offset: binary.LittleEndian.Uint64(b[16:]),
	}
}

func appendEntry(dst []byte, e Entry) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(e.Time))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(e.Sys))
	dst = append(dst, 0, 0, 0, 0)
	return binary.LittleEndian.AppendUint64(dst, e.Offset)
}

// entries is a sort.Interface over a mapped entry table.
type entries struct {
	data  []byte
	order Order
}

func (s entries) Len() int { return len(s.data) / EntrySize }

func (s entries) at(i int) Entry { return decodeEntry(s.data[i*EntrySize:]) }

func (s entries) Less(i, j int) bool { return s.order.Less(s.at(i), s.at(j)) }

func (s entries) Swap(i, j int) {
	var tmp [EntrySize]byte
	a := s.data[i*EntrySize : (i+1)*EntrySize]
	b := s.data[j*EntrySize : (j+1)*EntrySize]
	copy(tmp[:], a)
	copy(a, b)
	copy(b, tmp[:])
}

package record

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/swarmdb/model"
)

func appendHeader(dst []byte, kind Kind, n int) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(kind))
	return binary.LittleEndian.AppendUint32(dst, uint32(n))
}

func appendPrefix(dst []byte, t float64, sys int32) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(t))
	return binary.LittleEndian.AppendUint32(dst, uint32(sys))
}

// AppendEvent appends a simulation event of a non-negative kind.
// It panics on a negative kind.
func AppendEvent(dst []byte, kind Kind, t float64, sys int32, body []byte) []byte {
	if kind.System() {
		panic("record: AppendEvent with system kind")
	}
	dst = appendHeader(dst, kind, HeaderSize+EventPrefixSize+len(body))
	dst = appendPrefix(dst, t, sys)
	return append(dst, body...)
}

// AppendSystem appends a system event of a negative kind other than KindEOF.
// It panics on any other kind.
func AppendSystem(dst []byte, kind Kind, body []byte) []byte {
	if !kind.System() || kind == KindEOF {
		panic("record: AppendSystem requires a negative, non-EOF kind")
	}
	dst = appendHeader(dst, kind, HeaderSize+len(body))
	return append(dst, body...)
}

// AppendMessage appends a KindMessage record carrying msg.
func AppendMessage(dst []byte, msg string) []byte {
	return AppendSystem(dst, KindMessage, []byte(msg))
}

// AppendSnapshot appends a snapshot record for one system.
func AppendSnapshot(dst []byte, t float64, sys int32, flags int64, bodies []model.Body) []byte {
	dst = appendHeader(dst, KindSnapshot, snapshotFixedSize+len(bodies)*model.BodySize)
	dst = appendPrefix(dst, t, sys)
	dst = binary.LittleEndian.AppendUint64(dst, uint64(flags))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(bodies)))
	for _, b := range bodies {
		for _, v := range [...]float64{b.Mass, b.X, b.Y, b.Z, b.VX, b.VY, b.VZ} {
			dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v))
		}
	}
	return dst
}

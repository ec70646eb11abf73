package record

import (
	"testing"

	"github.com/hupe1980/swarmdb/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Event(t *testing.T) {
	buf := AppendEvent(nil, 7, 12.5, 3, []byte("abc"))
	require.Len(t, buf, HeaderSize+EventPrefixSize+3)

	r, err := At(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, Kind(7), r.Kind())
	assert.Equal(t, len(buf), r.Len())
	assert.False(t, r.IsEOF())

	tm, sys := r.TimeSys()
	assert.Equal(t, 12.5, tm)
	assert.Equal(t, int32(3), sys)
	assert.Equal(t, []byte("abc"), r.Body())
	assert.Equal(t, "kind(7) t=12.5 sys=3 len=23", r.String())
}

func TestRecord_SystemEvent(t *testing.T) {
	buf := AppendMessage(nil, "hello")

	r, err := At(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, r.Kind())
	assert.True(t, r.Kind().System())

	tm, sys := r.TimeSys()
	assert.Equal(t, -1.0, tm)
	assert.Equal(t, int32(-1), sys)
	assert.Equal(t, "hello", string(r.Body()))
	assert.Equal(t, "hello", string(r.Payload()))
}

func TestRecord_EOF(t *testing.T) {
	assert.True(t, EOF.IsEOF())
	assert.Equal(t, KindEOF, EOF.Kind())
	assert.Equal(t, HeaderSize, EOF.Len())
	assert.Empty(t, EOF.Payload())
}

func TestRecord_AppendPanics(t *testing.T) {
	assert.Panics(t, func() { AppendEvent(nil, KindMessage, 0, 0, nil) })
	assert.Panics(t, func() { AppendSystem(nil, KindSnapshot, nil) })
	assert.Panics(t, func() { AppendSystem(nil, KindEOF, nil) })
}

func TestRecord_Snapshot(t *testing.T) {
	bodies := []model.Body{
		{Mass: 1},
		{Mass: 0.001, X: 1, Y: 2, Z: 3, VX: -0.1, VY: 0.2, VZ: 0.3},
	}
	buf := AppendSnapshot(nil, 5, 9, 42, bodies)

	r, err := At(buf, 0)
	require.NoError(t, err)
	require.Equal(t, KindSnapshot, r.Kind())

	s, err := r.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 5.0, s.Time)
	assert.Equal(t, int32(9), s.System)
	assert.Equal(t, int64(42), s.Flags)
	assert.Equal(t, 2, s.NumBodies())
	assert.Equal(t, bodies, s.Bodies())
	assert.Equal(t, bodies[1], s.Body(1))
}

func TestRecord_SnapshotErrors(t *testing.T) {
	r, err := At(AppendEvent(nil, 2, 0, 0, nil), 0)
	require.NoError(t, err)
	_, err = r.Snapshot()
	assert.ErrorIs(t, err, ErrNotSnapshot)

	// Claim three bodies but carry only one.
	buf := AppendSnapshot(nil, 0, 0, 0, []model.Body{{Mass: 1}})
	buf[28] = 3
	r, err = At(buf, 0)
	require.NoError(t, err)
	_, err = r.Snapshot()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestAt_Malformed(t *testing.T) {
	good := AppendEvent(nil, 1, 0, 0, nil)

	tests := []struct {
		name string
		data []byte
		off  int
	}{
		{"negative offset", good, -1},
		{"truncated header", good[:4], 0},
		{"length exceeds data", good[:len(good)-1], 0},
		{"length below header", []byte{1, 0, 0, 0, 4, 0, 0, 0}, 0},
		{"event without prefix", []byte{1, 0, 0, 0, 8, 0, 0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := At(tt.data, tt.off)
			require.ErrorIs(t, err, ErrMalformed)
			var me *MalformedError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.off, me.Offset)
		})
	}
}

func TestStream(t *testing.T) {
	var buf []byte
	buf = AppendSnapshot(buf, 1, 0, 0, []model.Body{{Mass: 1}})
	buf = AppendMessage(buf, "note")
	buf = AppendEvent(buf, 3, 2, 1, []byte{1, 2, 3, 4})

	s := NewStream(buf)
	var (
		kinds   []Kind
		offsets []int
	)
	for r, ok := s.Next(); ok; r, ok = s.Next() {
		kinds = append(kinds, r.Kind())
		offsets = append(offsets, s.Offset())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []Kind{KindSnapshot, KindMessage, 3}, kinds)
	assert.Equal(t, 0, offsets[0])
	assert.Equal(t, len(buf), s.Consumed())

	// A truncated tail stops the stream with an error.
	s = NewStream(buf[:len(buf)-2])
	n := 0
	for _, ok := s.Next(); ok; _, ok = s.Next() {
		n++
	}
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, s.Err(), ErrMalformed)
}

package swarmdb

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/index"
	"github.com/hupe1980/swarmdb/internal/fs"
	"github.com/hupe1980/swarmdb/model"
	"github.com/hupe1980/swarmdb/record"
	"github.com/hupe1980/swarmdb/testutil"
)

func writeLog(t *testing.T, spec testutil.LogSpec) (string, []testutil.Event) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.bin")
	payload, events := testutil.NewRNG(4711).Log(spec)
	return path, testutil.WriteSorted(t, path, payload, events)
}

func openDB(t *testing.T, path string, optFns ...Option) (*DB, *BasicMetricsCollector) {
	t.Helper()
	metrics := &BasicMetricsCollector{}
	optFns = append([]Option{WithLogger(NoopLogger()), WithMetricsCollector(metrics)}, optFns...)
	db, err := Open(path, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, metrics
}

// offsetOf returns the offset of r within the mapped payload starting at base.
func offsetOf(base *byte, r []byte) uintptr {
	return uintptr(unsafe.Pointer(&r[0])) - uintptr(unsafe.Pointer(base))
}

func modTime(t *testing.T, path string) time.Time {
	t.Helper()
	fi, err := os.Stat(path)
	require.NoError(t, err)
	return fi.ModTime()
}

func TestOpen(t *testing.T) {
	path, events := writeLog(t, testutil.LogSpec{Records: 300, Systems: 10, MessageEvery: 25})

	db, metrics := openDB(t, path)
	assert.Equal(t, len(events), db.Len())
	assert.Equal(t, int64(2), metrics.GetStats().IndexRebuilds)

	for _, o := range index.Orders() {
		_, err := os.Stat(o.Path(path))
		require.NoError(t, err)
	}
}

func TestOpenErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope"), WithLogger(nil))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unsorted log", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.bin.raw")
		testutil.WriteFile(t, path, format.TypeUnsorted, nil)

		_, err := Open(path, WithLogger(nil))
		var ie *format.IncompatibleError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, format.TypeSorted, ie.Expected)
		assert.Equal(t, format.TypeUnsorted, ie.Actual)
	})
}

func TestStalenessIdempotence(t *testing.T) {
	path, _ := writeLog(t, testutil.LogSpec{Records: 200, Systems: 5})

	db, _ := openDB(t, path)
	require.NoError(t, db.Close())

	timeIdx, sysIdx := index.TimeOrder.Path(path), index.SystemOrder.Path(path)
	before := []time.Time{modTime(t, timeIdx), modTime(t, sysIdx)}

	// Reopening an unchanged log leaves the indexes alone.
	db, metrics := openDB(t, path)
	require.NoError(t, db.Close())
	assert.Zero(t, metrics.GetStats().IndexRebuilds)
	assert.Equal(t, before, []time.Time{modTime(t, timeIdx), modTime(t, sysIdx)})

	// Touching the log forces exactly one rebuild.
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	db, metrics = openDB(t, path)
	require.NoError(t, db.Close())
	assert.Equal(t, int64(2), metrics.GetStats().IndexRebuilds)

	db, metrics = openDB(t, path)
	require.NoError(t, db.Close())
	assert.Zero(t, metrics.GetStats().IndexRebuilds)
}

func TestSourceSizeOffByOne(t *testing.T) {
	path, events := writeLog(t, testutil.LogSpec{Records: 120, Systems: 4})
	db, _ := openDB(t, path)
	require.NoError(t, db.Close())

	// Corrupt the recorded size and the entries of the time index. A patch
	// would keep the entries; a rebuild restores them.
	idx := index.TimeOrder.Path(path)
	data, err := os.ReadFile(idx)
	require.NoError(t, err)
	size := binary.LittleEndian.Uint64(data[104:])
	binary.LittleEndian.PutUint64(data[104:], size+1)
	for i := format.IndexHeaderSize; i < len(data); i++ {
		data[i] = 0
	}
	require.NoError(t, os.WriteFile(idx, data, 0o644))

	db, metrics := openDB(t, path)
	assert.Equal(t, int64(1), metrics.GetStats().IndexRebuilds)

	cur := db.Query(model.All[int32](), model.All[float64]())
	n := 0
	for _, ok := cur.Next(); ok; _, ok = cur.Next() {
		n++
	}
	assert.Equal(t, len(events), n)

	ix, err := index.OpenFresh(path, index.TimeOrder, db.Fingerprint())
	require.NoError(t, err)
	defer ix.Close()
	for i := 1; i < ix.Len(); i++ {
		assert.False(t, index.TimeOrder.Less(ix.At(i), ix.At(i-1)))
	}
}

func TestForceReindex(t *testing.T) {
	path, _ := writeLog(t, testutil.LogSpec{Records: 50, Systems: 3})
	db, _ := openDB(t, path)
	require.NoError(t, db.Close())

	db, metrics := openDB(t, path, WithForceReindex())
	require.NoError(t, db.Close())
	assert.Equal(t, int64(2), metrics.GetStats().IndexRebuilds)
}

func TestReindexWriteFailure(t *testing.T) {
	path, events := writeLog(t, testutil.LogSpec{Records: 50, Systems: 3})
	sysIdx := index.SystemOrder.Path(path)

	faulty := fs.NewFaultyFS(fs.Default)
	faulty.AddRule(filepath.Base(sysIdx), fs.Fault{FailAfterBytes: 200})

	_, err := Open(path, WithLogger(NoopLogger()), WithIndexOptions(func(o *index.Options) { o.FS = faulty }))
	require.ErrorIs(t, err, fs.ErrInjected)

	for _, p := range []string{sysIdx, sysIdx + ".tmp"} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}

	db, metrics := openDB(t, path)
	assert.Equal(t, len(events), db.Len())
	assert.Positive(t, metrics.GetStats().IndexRebuilds)
}

func TestMissingIndexRebuiltAlone(t *testing.T) {
	path, _ := writeLog(t, testutil.LogSpec{Records: 50, Systems: 3})
	db, _ := openDB(t, path)
	require.NoError(t, db.Close())

	before := modTime(t, index.TimeOrder.Path(path))
	require.NoError(t, os.Remove(index.SystemOrder.Path(path)))

	db, metrics := openDB(t, path)
	require.NoError(t, db.Close())
	assert.Equal(t, int64(1), metrics.GetStats().IndexRebuilds)
	assert.Equal(t, before, modTime(t, index.TimeOrder.Path(path)))
}

func TestQueryCorrectness(t *testing.T) {
	path, events := writeLog(t, testutil.LogSpec{Records: 800, Systems: 12, TimeSteps: 30, MessageEvery: 30})
	db, metrics := openDB(t, path)

	type query struct {
		name string
		sys  model.Range[int32]
		t    model.Range[float64]
	}
	queries := []query{
		{"all", model.All[int32](), model.All[float64]()},
		{"system point", model.Point[int32](4), model.All[float64]()},
		{"system range", model.Between[int32](2, 6), model.All[float64]()},
		{"time point", model.All[int32](), model.Point(3.5)},
		{"time range", model.All[int32](), model.Between(2.0, 7.5)},
		{"both", model.Between[int32](1, 3), model.Between(0.0, 4.0)},
		{"system and time point", model.Point[int32](5), model.Point(6.0)},
		{"system events", model.Point[int32](-1), model.All[float64]()},
		{"empty time", model.All[int32](), model.Between(100.0, 200.0)},
		{"inverted", model.Between[int32](6, 2), model.All[float64]()},
	}

	for _, q := range queries {
		t.Run(q.name, func(t *testing.T) {
			want := map[uint64]bool{}
			for _, ev := range events {
				if q.sys.Contains(ev.Sys) && q.t.Contains(ev.Time) {
					want[uint64(ev.Offset)] = true
				}
			}

			base := &db.payload()[0]
			got := map[uint64]bool{}
			cur := db.Query(q.sys, q.t)
			for r, ok := cur.Next(); ok; r, ok = cur.Next() {
				tm, sys := r.TimeSys()
				assert.True(t, q.sys.Contains(sys))
				assert.True(t, q.t.Contains(tm))
				off := uint64(offsetOf(base, r))
				assert.False(t, got[off], "record returned twice")
				got[off] = true
			}
			require.NoError(t, cur.Err())
			assert.Equal(t, want, got)

			r, ok := cur.Next()
			assert.False(t, ok)
			assert.True(t, r.IsEOF())
		})
	}
	assert.Equal(t, int64(len(queries)), metrics.GetStats().QueryCount)
}

func TestCursorUngetAndReset(t *testing.T) {
	path, _ := writeLog(t, testutil.LogSpec{Records: 100, Systems: 4})
	db, _ := openDB(t, path)

	cur := db.Query(model.Point[int32](2), model.All[float64]())
	first, ok := cur.Next()
	require.True(t, ok)
	second, ok := cur.Next()
	require.True(t, ok)

	cur.Unget()
	again, ok := cur.Next()
	require.True(t, ok)
	assert.Equal(t, second, again)

	cur.Reset()
	r, ok := cur.Next()
	require.True(t, ok)
	assert.Equal(t, first, r)
}

func TestCursorUngetAtEnd(t *testing.T) {
	path, _ := writeLog(t, testutil.LogSpec{Records: 100, Systems: 4})
	db, _ := openDB(t, path)

	cur := db.Query(model.Point[int32](1), model.All[float64]())
	var last record.Record
	for r, ok := cur.Next(); ok; r, ok = cur.Next() {
		last = r
	}
	require.NotNil(t, last)

	// Twice in a row counts once.
	cur.Unget()
	cur.Unget()
	r, ok := cur.Next()
	require.True(t, ok)
	assert.Equal(t, last, r)

	_, ok = cur.Next()
	assert.False(t, ok)
}

func TestCursorAfterClose(t *testing.T) {
	path, _ := writeLog(t, testutil.LogSpec{Records: 20, Systems: 2})
	db, err := Open(path, WithLogger(nil))
	require.NoError(t, err)

	cur := db.Query(model.All[int32](), model.All[float64]())
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	r, ok := cur.Next()
	assert.False(t, ok)
	assert.Equal(t, record.EOF, r)
}

func TestSystemsAndStats(t *testing.T) {
	path, events := writeLog(t, testutil.LogSpec{Records: 400, Systems: 9, TimeSteps: 20, MessageEvery: 20})
	db, _ := openDB(t, path)

	var (
		all, early = map[uint32]bool{}, map[uint32]bool{}
		messages   int
		first      = 1e300
		last       = -1e300
	)
	for _, ev := range events {
		if ev.Sys < 0 {
			messages++
			continue
		}
		all[uint32(ev.Sys)] = true
		if ev.Time <= 2 {
			early[uint32(ev.Sys)] = true
		}
		first = min(first, ev.Time)
		last = max(last, ev.Time)
	}

	assert.Equal(t, uint64(len(all)), db.Systems(model.All[float64]()).GetCardinality())
	assert.Equal(t, uint64(len(early)), db.Systems(model.Between(0.0, 2.0)).GetCardinality())

	st, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, len(events), st.Records)
	assert.Equal(t, messages, st.SystemEvents)
	assert.Equal(t, uint64(len(all)), st.Systems)
	assert.Equal(t, first, st.FirstTime)
	assert.Equal(t, last, st.LastTime)
	assert.Equal(t, int64(2*format.IndexHeaderSize+2*index.EntrySize*len(events)), st.IndexBytes)

	require.NoError(t, db.Close())
	_, err = db.Stats()
	require.ErrorIs(t, err, ErrClosed)
}

func TestStatsReservedSystemIDs(t *testing.T) {
	// Already in (time, system) order.
	var payload []byte
	payload = record.AppendMessage(payload, "start")
	payload = record.AppendEvent(payload, 5, 0.5, -3, []byte("x"))
	payload = record.AppendEvent(payload, 5, 1, 0, []byte("y"))
	payload = record.AppendEvent(payload, 5, 2, 4, []byte("z"))

	path := filepath.Join(t.TempDir(), "reserved.bin")
	testutil.WriteFile(t, path, format.TypeSorted, payload)
	db, _ := openDB(t, path)

	st, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, st.Records)
	assert.Equal(t, 1, st.SystemEvents)
	assert.Equal(t, 0.5, st.FirstTime)
	assert.Equal(t, 2.0, st.LastTime)
	assert.Equal(t, []uint32{0, 4}, db.Systems(model.All[float64]()).ToArray())
	assert.Equal(t, []uint32{0}, db.Systems(model.Between(0.0, 1.0)).ToArray())
}

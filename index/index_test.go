package index

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/internal/fs"
	"github.com/hupe1980/swarmdb/testutil"
)

func buildLog(t *testing.T, records int) (string, []testutil.Event) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run")
	rng := testutil.NewRNG(4711)
	payload, events := rng.Log(testutil.LogSpec{Records: records, Systems: 12, TimeSteps: 25, MessageEvery: 40})
	sorted := testutil.WriteSorted(t, path, payload, events)
	return path, sorted
}

func readAll(ix *Index) []Entry {
	out := make([]Entry, ix.Len())
	for i := range out {
		out[i] = ix.At(i)
	}
	return out
}

func TestBuild(t *testing.T) {
	path, events := buildLog(t, 600)

	require.NoError(t, Build(path, Orders()))

	fp, err := format.StatFingerprint(path)
	require.NoError(t, err)

	expected := make([]Entry, len(events))
	for i, ev := range events {
		expected[i] = Entry{Time: ev.Time, Sys: ev.Sys, Offset: uint64(ev.Offset)}
	}

	for _, order := range Orders() {
		t.Run(order.Name, func(t *testing.T) {
			ix, err := OpenFresh(path, order, fp)
			require.NoError(t, err)
			defer ix.Close()

			assert.Equal(t, len(events), ix.Len())
			got := readAll(ix)

			// Completeness: same entry set as the log.
			want := slices.Clone(expected)
			slices.SortFunc(want, order.Compare)
			assert.Equal(t, want, got)

			// Correctness: adjacent pairs are ordered.
			for i := 1; i < len(got); i++ {
				assert.False(t, order.Less(got[i], got[i-1]), "entry %d out of order", i)
			}

			_, err = os.Stat(order.Path(path) + ".tmp")
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestBuildEmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	testutil.WriteFile(t, path, format.TypeSorted, nil)

	require.NoError(t, Build(path, []Order{TimeOrder}))

	ix, err := Open(TimeOrder.Path(path), TimeOrder)
	require.NoError(t, err)
	defer ix.Close()
	assert.Zero(t, ix.Len())
	assert.Zero(t, ix.LowerBound(0))
}

func TestBuildRejectsUnsortedType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.raw")
	testutil.WriteFile(t, path, format.TypeUnsorted, nil)

	err := Build(path, Orders())
	require.ErrorIs(t, err, format.ErrIncompatible)

	_, err = os.Stat(TimeOrder.Path(path))
	assert.True(t, os.IsNotExist(err))
}

func TestBuildWriteFailure(t *testing.T) {
	path, _ := buildLog(t, 200)

	faulty := fs.NewFaultyFS(fs.Default)
	faulty.AddRule(".sys.idx", fs.Fault{FailOnRename: true})

	err := Build(path, Orders(), func(o *Options) { o.FS = faulty })
	require.ErrorIs(t, err, fs.ErrInjected)

	_, err = os.Stat(SystemOrder.Path(path) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestOpenFresh(t *testing.T) {
	path, _ := buildLog(t, 100)
	require.NoError(t, Build(path, Orders()))

	fp, err := format.StatFingerprint(path)
	require.NoError(t, err)

	t.Run("wrong order type", func(t *testing.T) {
		_, err := Open(TimeOrder.Path(path), SystemOrder)
		require.ErrorIs(t, err, format.ErrIncompatible)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := OpenFresh(path+"-other", TimeOrder, fp)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("size off by one", func(t *testing.T) {
		idx := TimeOrder.Path(path)
		data, err := os.ReadFile(idx)
		require.NoError(t, err)
		binary.LittleEndian.PutUint64(data[104:], fp.Size+1)
		require.NoError(t, os.WriteFile(idx, data, 0o644))

		_, err = OpenFresh(path, TimeOrder, fp)
		var stale *StaleError
		require.ErrorAs(t, err, &stale)
		assert.ErrorIs(t, err, ErrStale)
		assert.Equal(t, fp.Size+1, stale.Found.Size)

		// The system index is untouched.
		ix, err := OpenFresh(path, SystemOrder, fp)
		require.NoError(t, err)
		require.NoError(t, ix.Close())
	})

	t.Run("log touched", func(t *testing.T) {
		later := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(path, later, later))
		newFP, err := format.StatFingerprint(path)
		require.NoError(t, err)

		_, err = OpenFresh(path, SystemOrder, newFP)
		require.ErrorIs(t, err, ErrStale)
	})
}

func TestBounds(t *testing.T) {
	path, events := buildLog(t, 400)
	require.NoError(t, Build(path, Orders()))

	ix, err := Open(SystemOrder.Path(path), SystemOrder)
	require.NoError(t, err)
	defer ix.Close()

	count := 0
	for _, ev := range events {
		if ev.Sys == 3 {
			count++
		}
	}

	lo, hi := ix.LowerBound(3), ix.UpperBound(3)
	assert.Equal(t, count, hi-lo)
	for i := lo; i < hi; i++ {
		assert.Equal(t, int32(3), ix.At(i).Sys)
	}

	assert.Equal(t, ix.Len(), ix.UpperBound(1e9))
	// System records carry sys -1 and sort first.
	assert.Positive(t, ix.LowerBound(0))
	assert.Equal(t, 0, ix.LowerBound(-1))
}

func TestSortFileEntryCount(t *testing.T) {
	path, _ := buildLog(t, 50)
	require.NoError(t, Build(path, []Order{TimeOrder}))

	err := sortFile(TimeOrder.Path(path), TimeOrder, 49)
	require.ErrorIs(t, err, ErrEntryCount)
}

func TestCloseIsIdempotent(t *testing.T) {
	path, _ := buildLog(t, 10)
	require.NoError(t, Build(path, []Order{TimeOrder}))

	ix, err := Open(TimeOrder.Path(path), TimeOrder)
	require.NoError(t, err)
	require.NoError(t, ix.Close())
	require.NoError(t, ix.Close())
	assert.Zero(t, ix.Len())
}

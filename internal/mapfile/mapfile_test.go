package mapfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/swarmdb/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, hdr interface{ MarshalBinary() ([]byte, error) }, payload []byte) string {
	t.Helper()
	b, err := hdr.MarshalBinary()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, append(b, payload...), 0o600))
	return path
}

func TestOpen(t *testing.T) {
	h := format.NewHeader("T_sorted_output // sorted", 0, 5)
	path := writeFile(t, &h, []byte("hello"))

	f, err := Open(path, format.TypeSorted, ReadOnly, true)
	require.NoError(t, err)

	assert.Equal(t, path, f.Path())
	assert.Equal(t, format.TypeSorted, f.Header().Type())
	assert.Equal(t, uint64(5), f.Header().PayloadLength)
	assert.Equal(t, []byte("hello"), f.Payload())
	assert.Equal(t, 5, f.Size())

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
	assert.Nil(t, f.Payload())
}

func TestOpen_Incompatible(t *testing.T) {
	h := format.NewHeader(format.TypeUnsorted, 0, format.UnknownLength)
	path := writeFile(t, &h, nil)

	_, err := Open(path, format.TypeSorted, ReadOnly, true)
	require.ErrorIs(t, err, format.ErrIncompatible)
	var ie *format.IncompatibleError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, format.TypeSorted, ie.Expected)
	assert.Equal(t, format.TypeUnsorted, ie.Actual)

	// Without validation the same file opens.
	f, err := Open(path, format.TypeSorted, ReadOnly, false)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestOpen_ShortAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte("SWARM"), 0o600))

	_, err := Open(path, "", ReadOnly, true)
	assert.ErrorIs(t, err, format.ErrShortHeader)

	_, err = Open(path+".missing", "", ReadOnly, true)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenIndex_ReadWrite(t *testing.T) {
	h := format.NewIndexHeader(format.TypeTimeIndex, format.Fingerprint{MTime: 1, Size: 2})
	path := writeFile(t, &h, []byte("abcd"))

	f, err := OpenIndex(path, format.TypeTimeIndex, ReadWrite, true)
	require.NoError(t, err)
	assert.Equal(t, format.Fingerprint{MTime: 1, Size: 2}, f.IndexHeader().Fingerprint())
	assert.Equal(t, format.TypeTimeIndex, f.Header().Type())

	copy(f.Payload(), "dcba")
	require.NoError(t, f.Flush())
	require.NoError(t, f.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(got, []byte("dcba")))
}

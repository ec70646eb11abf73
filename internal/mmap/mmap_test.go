package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mmap.bin")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestMmap_OpenReadClose(t *testing.T) {
	content := []byte("Hello, Mmap!")
	path := writeTemp(t, content)

	m, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, len(content), m.Size())
	assert.Equal(t, content, m.Bytes())

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	n, err = m.ReadAt(make([]byte, 10), 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	buf3 := make([]byte, 10)
	n, err = m.ReadAt(buf3, 7)
	assert.Equal(t, 5, n)
	assert.Equal(t, io.EOF, err)

	_, err = m.ReadAt(buf, -1)
	assert.Equal(t, ErrInvalidOffset, err)
}

func TestMmap_EmptyFile(t *testing.T) {
	path := writeTemp(t, nil)

	m, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 0, m.Size())
	assert.Nil(t, m.Bytes())
}

func TestRegion_FlushReachesFile(t *testing.T) {
	// A payload that starts mid-page, like one following a file header.
	content := make([]byte, 3*os.Getpagesize())
	path := writeTemp(t, content)

	m, err := Open(path, ReadWrite)
	require.NoError(t, err)

	r, err := m.Tail(os.Getpagesize() + 112)
	require.NoError(t, err)
	assert.Equal(t, os.Getpagesize()+112, r.Offset())
	assert.Equal(t, len(content)-r.Offset(), r.Len())

	payload := r.Bytes()
	payload[0], payload[len(payload)-1] = 'a', 'z'
	require.NoError(t, r.Advise(AccessRandom))
	require.NoError(t, r.Flush())
	require.NoError(t, m.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('a'), got[os.Getpagesize()+112])
	assert.Equal(t, byte('z'), got[len(got)-1])
}

func TestRegion_Bounds(t *testing.T) {
	path := writeTemp(t, make([]byte, 1024))

	m, err := Open(path, ReadOnly)
	require.NoError(t, err)

	r, err := m.Region(100, 200)
	require.NoError(t, err)
	assert.Len(t, r.Bytes(), 200)
	assert.ErrorIs(t, r.Flush(), ErrReadOnly)

	empty, err := m.Tail(1024)
	require.NoError(t, err)
	assert.Empty(t, empty.Bytes())
	require.NoError(t, empty.Advise(AccessSequential))

	_, err = m.Region(-1, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Region(1000, 100)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = m.Tail(2000)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	require.NoError(t, m.Close())

	assert.Nil(t, r.Bytes())
	assert.ErrorIs(t, r.Advise(AccessDefault), ErrClosed)
}

func TestRegion_EmptyMapping(t *testing.T) {
	m, err := Open(writeTemp(t, nil), ReadOnly)
	require.NoError(t, err)
	defer m.Close()

	r, err := m.Tail(0)
	require.NoError(t, err)
	assert.NotNil(t, r.Bytes())
	assert.Zero(t, r.Len())
}

func TestMmap_CloseIsIdempotent(t *testing.T) {
	path := writeTemp(t, []byte("data"))

	m, err := Open(path, ReadOnly)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.True(t, m.Closed())
	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Advise(AccessRandom), ErrClosed)
	_, err = m.Region(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMmap_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), ReadOnly)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

package hash

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32C(t *testing.T) {
	// Check value of the Castagnoli polynomial.
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))

	h := NewCRC32C()
	_, _ = h.Write([]byte("1234"))
	_, _ = h.Write([]byte("56789"))
	assert.Equal(t, uint32(0xe3069283), h.Sum32())
}

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader("123456789"))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "123456789", string(data))
	assert.Equal(t, int64(9), r.Count())
	assert.Equal(t, CRC32C(data), r.Sum32())
}

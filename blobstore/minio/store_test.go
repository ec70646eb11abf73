package minio

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/swarmdb/blobstore"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestKeys(t *testing.T) {
	s := NewStore(nil, "bucket", "root/")
	assert.Equal(t, "root/run/a", s.key("run/a"))
	assert.Equal(t, "run/a", s.name("root/run/a"))

	bare := NewStore(nil, "bucket", "")
	assert.Equal(t, "a", bare.key("a"))
	assert.Equal(t, "a", bare.name("a"))
}

// TestStoreIntegration needs a MinIO server. Set SWARMDB_MINIO_ENDPOINT to
// run it, e.g. SWARMDB_MINIO_ENDPOINT=localhost:9000.
func TestStoreIntegration(t *testing.T) {
	endpoint := os.Getenv("SWARMDB_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("SWARMDB_MINIO_ENDPOINT not set")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	ctx := context.Background()
	bucket := "swarmdb-test"
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		t.Skipf("minio not available: %v", err)
	}
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, uuid.NewString())

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "run/data", data))

	got, err := blobstore.ReadAll(ctx, store, "run/data")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	b, err := store.Open(ctx, "run/data")
	require.NoError(t, err)
	rc, err := b.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, "minio", string(part))

	w, err := store.Create(ctx, "run/stream")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "run/")
	require.NoError(t, err)
	assert.Equal(t, []string{"run/data", "run/stream"}, names)

	require.NoError(t, store.Delete(ctx, "run/data"))
	require.NoError(t, store.Delete(ctx, "run/stream"))
	require.NoError(t, store.Delete(ctx, "run/stream"))

	_, err = store.Open(ctx, "run/data")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

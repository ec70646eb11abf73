// Package blobstore abstracts the object stores swarmdb archives logs to.
//
// A BlobStore holds immutable named blobs. Logs are pushed as a compressed
// data blob followed by a small manifest; readers fetch the manifest first
// and then stream the data blob.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system
//   - MemoryStore: an in-memory map, for tests
//   - s3.Store: Amazon S3 via aws-sdk-go-v2
//   - minio.Store: MinIO and other S3-compatible servers via minio-go
//
// All implementations are safe for concurrent use.
package blobstore

// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with read/write/sync capabilities
//   - [FileSystem]: the open, remove, rename and stat operations used by the
//     writer, the log sorter and the index builder
//
// # Implementations
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test utility that injects I/O errors per file-name pattern
//
// Memory mapping always goes through the real file system; only the write
// path is abstracted.
package fs

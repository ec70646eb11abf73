// Package mmap provides memory-mapped file access for zero-copy I/O.
//
// # Usage
//
//	m, err := mmap.Open("run.bin", mmap.ReadOnly)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
//	// The payload after a 96-byte header
//	payload, _ := m.Tail(96)
//	payload.Advise(mmap.AccessSequential)
//
// # Modes
//
// ReadOnly maps with PROT_READ. ReadWrite maps with PROT_READ|PROT_WRITE and
// MAP_SHARED, so stores through Bytes() reach the file; call Region.Flush
// before Close when the writes must be on disk. Region widens Advise and
// Flush to page boundaries.
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent read access. Close is
// idempotent and protected by an atomic flag. Callers must ensure no
// goroutine touches Bytes() after Close returns.
package mmap

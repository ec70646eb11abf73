// Package record implements the self-describing, variable-length event
// records stored in swarmdb logs.
//
// # Layout
//
//	[kind int32][length uint32][payload ...]
//
// length counts the whole record including the 8-byte header. Records with a
// negative kind are system events and carry no (time, system) prefix; kind -1
// is reserved for the end-of-stream sentinel. Every other record starts its
// payload with
//
//	[time float64][system int32]
//
// Snapshot records (KindSnapshot) continue with
//
//	[flags int64][body_count int32][body_count x (mass, x, y, z, vx, vy, vz float64)]
//
// A [Record] is a borrowed view: when it comes from a mapped log it is only
// valid while the log stays open.
package record

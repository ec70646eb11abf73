// Package format defines the fixed-size binary headers that prefix every
// swarmdb file.
//
// # File Header (96 bytes, 16-byte aligned)
//
//	offset  size  field
//	0       6     magic "SWARM\0"
//	6       2     version "0\0"
//	8       76    type tag, NUL padded, optional "// description" suffix
//	84      4     flags (uint32, user defined)
//	88      8     payload length (uint64, all ones = unknown)
//
// # Index Header (112 bytes)
//
// The file header followed by the modification time (sec<<32 + nsec) and the
// byte size of the log file the index was built from.
//
// Only the part of the type tag before "//" takes part in compatibility
// checks; an empty expected type accepts any file of the format family.
package format

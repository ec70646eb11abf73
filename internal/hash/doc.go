// Package hash provides the CRC32-Castagnoli checksums that guard archived
// run files.
//
//	h := hash.NewCRC32C()
//	io.Copy(h, f)
//	sum := h.Sum32()
package hash

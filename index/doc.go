// Package index builds and reads the sorted index files of a swarmdb log.
//
// Every sorted log F has two derived index files, F.time.idx and F.sys.idx.
// Both hold one 24-byte Entry per record of F; they differ only in the order
// the entries are stored in. An Order value describes one of them: its file
// suffix, type tag and comparator.
//
// Index files are built in two phases. Entries are first streamed to disk in
// log order; the file is then mapped read-write and sorted in place. The
// index header records the fingerprint (modification time and size) of the
// log it was built from, and OpenFresh refuses an index whose fingerprint no
// longer matches.
package index

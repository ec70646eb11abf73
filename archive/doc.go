// Package archive moves finished simulation logs between local disk and a
// blob store.
//
// A pushed run is stored as two blobs under <prefix>/<run id>/: the sorted
// log compressed with zstd or lz4, and a manifest holding the original size,
// its CRC32C checksum and a summary of the run. Pull verifies both before the
// log is renamed into place and opened. Indexes are never archived; they are
// regenerated on the first open.
//
//	a := archive.New(store, func(o *archive.Options) {
//	    o.Compression = archive.CompressionLZ4
//	    o.Catalog = ddb.NewCatalog(client, "swarmdb-runs")
//	})
//	m, err := a.Push(ctx, "run42.bin")
//	...
//	_, err = a.PullLatest(ctx, "run42.bin", "/scratch/run42.bin")
package archive

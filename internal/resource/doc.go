// Package resource bounds the memory and I/O that swarmdb's batch jobs may use.
//
//   - Memory: the log sorter holds one entry per record in memory; the
//     controller charges that against a hard, fail-fast limit.
//   - Transfers: the number of archive uploads/downloads running at once.
//   - IO: a token bucket throttling archive transfer throughput.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   1 << 30,
//	    MaxTransfers:       4,
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//
// All methods are no-ops on a nil *Controller, so limits stay optional.
package resource

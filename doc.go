// Package swarmdb stores and queries the trajectories of ensembles of N-body
// simulations.
//
// A simulation run produces an append-only log of binary records: snapshots
// of each system's bodies plus any other events an integrator emits. The log
// is written unsorted, sorted by (time, system) once the run completes and
// then indexed twice, by time and by system. swarmdb maps the sorted log and
// its indexes into memory and serves range queries and snapshot
// reconstruction from them.
//
// # Quick Start
//
// Writing:
//
//	w, _ := writer.NewBinary("run.bin")
//	w.Process(ensemble.AppendSnapshots(nil, ens))
//	w.Close() // sorts run.bin.raw into run.bin and builds the indexes
//
// Reading:
//
//	db, _ := swarmdb.Open("run.bin")
//	defer db.Close()
//
//	cur := db.Query(model.Point[int32](7), model.Between(0.0, 100.0))
//	for r, ok := cur.Next(); ok; r, ok = cur.Next() {
//	    fmt.Println(r)
//	}
//
// Reconstructing snapshots:
//
//	snaps := db.Snapshots(model.All[float64](), 1e-9, 1e-9)
//	var ens ensemble.Ensemble
//	for {
//	    ok, err := snaps.Next(&ens)
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Println(ens.NumActive(), "systems at", ens.Time(0))
//	}
//
// # Files
//
// For a log F the index files are F.time.idx and F.sys.idx. They record the
// modification time and size of F and are rebuilt by Open whenever either
// differs, so deleting them is always safe.
//
// # Concurrency
//
// An opened DB is read-only and may be shared between goroutines. Cursors
// and Snapshots readers are not safe for concurrent use. Records returned by
// a cursor point into the mapped log and are invalid after Close.
package swarmdb

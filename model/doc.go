// Package model defines core types used throughout swarmdb.
//
// # Ranges
//
// Queries filter records by system id and by simulation time. A [Range] is
// one of three variants:
//
//   - All: unconstrained
//   - Between(first, last): the closed interval [first, last]
//   - Point(v): exactly v
//
//	db.Query(model.Point[int32](3), model.Between(0.0, 100.0))
//	db.Query(model.All[int32](), model.All[float64]())
//
// # Bodies
//
// [Body] is the per-body state carried by snapshot records and stored in the
// ensemble: mass, position and velocity.
package model

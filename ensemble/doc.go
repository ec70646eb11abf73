// Package ensemble holds the in-memory state of a set of N-body systems:
// per-system bodies, time, flags and an active marker.
//
// An Ensemble is what snapshot reconstruction fills in and what producers
// turn into snapshot records. The package also carries the diagnostics used
// to judge an integration run: total energy per system, relative energy
// drift against a reference ensemble and element-wise comparison.
package ensemble

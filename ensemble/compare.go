package ensemble

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Diff is the largest element-wise difference between two ensembles.
type Diff struct {
	Position float64
	Velocity float64
	Time     float64
}

// Compare returns the largest position, velocity and time differences
// between a and b over the systems active in both. It reports false when the
// shapes differ.
func Compare(a, b *Ensemble) (Diff, bool) {
	if a.NumSys() != b.NumSys() || a.NumBod() != b.NumBod() {
		return Diff{}, false
	}

	var d Diff
	for sys := range a.NumSys() {
		if !a.Active(sys) || !b.Active(sys) {
			continue
		}
		for bod := range a.NumBod() {
			ba, bb := a.Body(sys, bod), b.Body(sys, bod)
			d.Position = math.Max(d.Position, r3.Norm(r3.Sub(position(ba), position(bb))))
			d.Velocity = math.Max(d.Velocity, r3.Norm(r3.Sub(velocity(ba), velocity(bb))))
		}
		d.Time = math.Max(d.Time, math.Abs(a.Time(sys)-b.Time(sys)))
	}
	return d, true
}

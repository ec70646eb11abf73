package ensemble

import (
	"math"
	"math/rand"

	"github.com/hupe1980/swarmdb/model"
	"github.com/hupe1980/swarmdb/record"
)

// GenerateCircular returns an ensemble of planetary systems: a unit mass
// star at rest at the origin and nbod-1 planets of mass 0.001 on circular
// orbits in the xy plane at radii 1.4^k, each at a random phase.
func GenerateCircular(nsys, nbod int, rng *rand.Rand) *Ensemble {
	e := New(nbod, nsys)
	for sys := range nsys {
		if nbod > 0 {
			e.SetBody(sys, 0, model.Body{Mass: 1})
		}
		for bod := 1; bod < nbod; bod++ {
			r := math.Pow(1.4, float64(bod-1))
			v := math.Sqrt(1 / r)
			theta := rng.Float64() * 2 * math.Pi
			sin, cos := math.Sincos(theta)
			e.SetBody(sys, bod, model.Body{
				Mass: 0.001,
				X:    r * cos, Y: r * sin,
				VX: -v * sin, VY: v * cos,
			})
		}
	}
	return e
}

// AppendSnapshots appends one snapshot record per active system of e, each
// stamped with the system's time and flags.
func AppendSnapshots(dst []byte, e *Ensemble) []byte {
	for sys := range e.NumSys() {
		if !e.Active(sys) {
			continue
		}
		dst = record.AppendSnapshot(dst, e.Time(sys), int32(sys), e.Flags(sys), e.Bodies(sys))
	}
	return dst
}

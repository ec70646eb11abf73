package ensemble

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hupe1980/swarmdb/model"
)

func position(b model.Body) r3.Vec { return r3.Vec{X: b.X, Y: b.Y, Z: b.Z} }

func velocity(b model.Body) r3.Vec { return r3.Vec{X: b.VX, Y: b.VY, Z: b.VZ} }

// SystemEnergy returns the total energy of one system in units with G = 1.
func SystemEnergy(bodies []model.Body) float64 {
	var kinetic, potential float64
	for i, bi := range bodies {
		kinetic += 0.5 * bi.Mass * r3.Norm2(velocity(bi))
		for _, bj := range bodies[:i] {
			r := r3.Norm(r3.Sub(position(bi), position(bj)))
			potential -= bi.Mass * bj.Mass / r
		}
	}
	return kinetic + potential
}

// TotalEnergy returns the energy of every system of e, active or not.
func TotalEnergy(e *Ensemble) []float64 {
	out := make([]float64, e.NumSys())
	for sys := range out {
		out[sys] = SystemEnergy(e.Bodies(sys))
	}
	return out
}

// EnergyErrors returns the relative energy drift |(E - E0) / E0| of every
// system of e against ref. Systems missing from either side, or inactive in
// either, report NaN.
func EnergyErrors(e, ref *Ensemble) []float64 {
	out := make([]float64, e.NumSys())
	for sys := range out {
		if sys >= ref.NumSys() || !e.Active(sys) || !ref.Active(sys) || e.NumBod() != ref.NumBod() {
			out[sys] = math.NaN()
			continue
		}
		e0 := SystemEnergy(ref.Bodies(sys))
		out[sys] = math.Abs((SystemEnergy(e.Bodies(sys)) - e0) / e0)
	}
	return out
}

// MaxEnergyError returns the worst relative energy drift over all systems
// both ensembles have active, and the system it occurs in. It returns
// (0, -1) when no system is comparable.
func MaxEnergyError(e, ref *Ensemble) (float64, int) {
	errs := EnergyErrors(e, ref)
	valid := make([]float64, 0, len(errs))
	ids := make([]int, 0, len(errs))
	for sys, v := range errs {
		if !math.IsNaN(v) {
			valid = append(valid, v)
			ids = append(ids, sys)
		}
	}
	if len(valid) == 0 {
		return 0, -1
	}
	i := floats.MaxIdx(valid)
	return valid[i], ids[i]
}

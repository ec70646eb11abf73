package ensemble

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/swarmdb/model"
)

// Ensemble is a table of nsys systems with nbod bodies each.
// It is not safe for concurrent mutation.
type Ensemble struct {
	nbod   int
	nsys   int
	bodies []model.Body
	time   []float64
	flags  []int64
	active []bool
}

// New returns an ensemble of nsys systems with nbod bodies each. All systems
// start active at time zero.
func New(nbod, nsys int) *Ensemble {
	if nbod < 0 || nsys < 0 {
		panic(fmt.Sprintf("ensemble: invalid shape %dx%d", nbod, nsys))
	}
	e := &Ensemble{
		nbod:   nbod,
		nsys:   nsys,
		bodies: make([]model.Body, nbod*nsys),
		time:   make([]float64, nsys),
		flags:  make([]int64, nsys),
		active: make([]bool, nsys),
	}
	for i := range e.active {
		e.active[i] = true
	}
	return e
}

// NumBod returns the number of bodies per system.
func (e *Ensemble) NumBod() int { return e.nbod }

// NumSys returns the number of systems.
func (e *Ensemble) NumSys() int { return e.nsys }

// SetActive marks system sys active.
func (e *Ensemble) SetActive(sys int) { e.active[sys] = true }

// SetInactive marks system sys inactive.
func (e *Ensemble) SetInactive(sys int) { e.active[sys] = false }

// Active reports whether system sys is active.
func (e *Ensemble) Active(sys int) bool { return e.active[sys] }

// NumActive returns the number of active systems.
func (e *Ensemble) NumActive() int {
	n := 0
	for _, a := range e.active {
		if a {
			n++
		}
	}
	return n
}

// ActiveSet returns the ids of the active systems.
func (e *Ensemble) ActiveSet() *roaring.Bitmap {
	bm := roaring.New()
	for i, a := range e.active {
		if a {
			bm.Add(uint32(i))
		}
	}
	return bm
}

// SetBody sets body bod of system sys.
func (e *Ensemble) SetBody(sys, bod int, b model.Body) { e.bodies[e.at(sys, bod)] = b }

// Body returns body bod of system sys.
func (e *Ensemble) Body(sys, bod int) model.Body { return e.bodies[e.at(sys, bod)] }

// Bodies returns the bodies of system sys. The slice aliases the ensemble.
func (e *Ensemble) Bodies(sys int) []model.Body {
	return e.bodies[sys*e.nbod : (sys+1)*e.nbod]
}

// Time returns the time of system sys.
func (e *Ensemble) Time(sys int) float64 { return e.time[sys] }

// SetTime sets the time of system sys.
func (e *Ensemble) SetTime(sys int, t float64) { e.time[sys] = t }

// Flags returns the flags of system sys.
func (e *Ensemble) Flags(sys int) int64 { return e.flags[sys] }

// SetFlags sets the flags of system sys.
func (e *Ensemble) SetFlags(sys int, f int64) { e.flags[sys] = f }

// Clone returns a deep copy of e.
func (e *Ensemble) Clone() *Ensemble {
	c := &Ensemble{nbod: e.nbod, nsys: e.nsys}
	c.bodies = append([]model.Body(nil), e.bodies...)
	c.time = append([]float64(nil), e.time...)
	c.flags = append([]int64(nil), e.flags...)
	c.active = append([]bool(nil), e.active...)
	return c
}

func (e *Ensemble) at(sys, bod int) int {
	if bod < 0 || bod >= e.nbod {
		panic(fmt.Sprintf("ensemble: body %d out of range [0,%d)", bod, e.nbod))
	}
	return sys*e.nbod + bod
}

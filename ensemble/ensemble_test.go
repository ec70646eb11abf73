package ensemble

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/swarmdb/model"
	"github.com/hupe1980/swarmdb/record"
)

func TestEnsemble(t *testing.T) {
	e := New(3, 4)
	assert.Equal(t, 3, e.NumBod())
	assert.Equal(t, 4, e.NumSys())
	assert.Equal(t, 4, e.NumActive())

	e.SetInactive(1)
	e.SetInactive(2)
	e.SetActive(2)
	assert.False(t, e.Active(1))
	assert.True(t, e.Active(2))
	assert.Equal(t, []uint32{0, 2, 3}, e.ActiveSet().ToArray())

	b := model.Body{Mass: 2, X: 1, VZ: -1}
	e.SetBody(3, 2, b)
	assert.Equal(t, b, e.Body(3, 2))
	assert.Equal(t, b, e.Bodies(3)[2])

	e.SetTime(0, 1.5)
	e.SetFlags(0, 7)
	assert.Equal(t, 1.5, e.Time(0))
	assert.Equal(t, int64(7), e.Flags(0))

	assert.Panics(t, func() { e.Body(0, 3) })

	c := e.Clone()
	c.SetTime(0, 9)
	assert.Equal(t, 1.5, e.Time(0))
}

func TestSystemEnergy(t *testing.T) {
	// Unit mass at rest and a test particle on a circular orbit at r = 1:
	// E = 0.5*m*v^2 - M*m/r = 0.5*m - m.
	bodies := []model.Body{
		{Mass: 1},
		{Mass: 0.001, X: 1, VY: 1},
	}
	assert.InDelta(t, -0.0005, SystemEnergy(bodies), 1e-12)
}

func TestEnergyErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ref := GenerateCircular(5, 4, rng)
	cur := ref.Clone()

	// Perturb one planet's speed in system 3.
	b := cur.Body(3, 2)
	b.VX *= 1.1
	b.VY *= 1.1
	cur.SetBody(3, 2, b)
	cur.SetInactive(4)

	errs := EnergyErrors(cur, ref)
	assert.Zero(t, errs[0])
	assert.True(t, math.IsNaN(errs[4]))

	worst, sys := MaxEnergyError(cur, ref)
	assert.Equal(t, 3, sys)
	assert.Positive(t, worst)
}

func TestCompare(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := GenerateCircular(3, 3, rng)
	b := a.Clone()

	d, ok := Compare(a, b)
	require.True(t, ok)
	assert.Equal(t, Diff{}, d)

	body := b.Body(1, 1)
	body.X += 0.5
	b.SetBody(1, 1, body)
	b.SetTime(2, 0.25)

	d, ok = Compare(a, b)
	require.True(t, ok)
	assert.InDelta(t, 0.5, d.Position, 1e-12)
	assert.Zero(t, d.Velocity)
	assert.Equal(t, 0.25, d.Time)

	_, ok = Compare(a, New(2, 3))
	assert.False(t, ok)
}

func TestGenerateCircular(t *testing.T) {
	e := GenerateCircular(2, 3, rand.New(rand.NewSource(3)))

	assert.Equal(t, model.Body{Mass: 1}, e.Body(0, 0))
	p := e.Body(1, 2)
	assert.InDelta(t, 1.4, math.Hypot(p.X, p.Y), 1e-12)
	assert.InDelta(t, math.Sqrt(1/1.4), math.Hypot(p.VX, p.VY), 1e-12)
}

func TestAppendSnapshots(t *testing.T) {
	e := GenerateCircular(3, 2, rand.New(rand.NewSource(4)))
	e.SetInactive(1)
	e.SetTime(2, 4)
	e.SetFlags(2, 1)

	payload := AppendSnapshots(nil, e)

	s := record.NewStream(payload)
	var systems []int32
	for r, ok := s.Next(); ok; r, ok = s.Next() {
		snap, err := r.Snapshot()
		require.NoError(t, err)
		systems = append(systems, snap.System)
		assert.Equal(t, e.Bodies(int(snap.System)), snap.Bodies())
		assert.Equal(t, e.Time(int(snap.System)), snap.Time)
		assert.Equal(t, e.Flags(int(snap.System)), snap.Flags)
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []int32{0, 2}, systems)
}

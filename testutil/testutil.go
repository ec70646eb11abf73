package testutil

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/hupe1980/swarmdb/format"
	"github.com/hupe1980/swarmdb/model"
	"github.com/hupe1980/swarmdb/record"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Rand returns the underlying generator. Callers must not share it between
// goroutines.
func (r *RNG) Rand() *rand.Rand {
	return r.rand
}

// Bodies returns n bodies with positions and velocities in [-1, 1) and
// masses in [0, 1).
func (r *RNG) Bodies(n int) []model.Body {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Body, n)
	for i := range out {
		out[i] = model.Body{
			Mass: r.rand.Float64(),
			X:    r.rand.Float64()*2 - 1,
			Y:    r.rand.Float64()*2 - 1,
			Z:    r.rand.Float64()*2 - 1,
			VX:   r.rand.Float64()*2 - 1,
			VY:   r.rand.Float64()*2 - 1,
			VZ:   r.rand.Float64()*2 - 1,
		}
	}
	return out
}

// Zipf returns a Zipfian-distributed value in [0, n).
// s=1.0 gives standard Zipf, larger s concentrates on low values.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

// LogSpec controls Log.
type LogSpec struct {
	// Records is the number of records to generate.
	Records int
	// Systems is the number of distinct system ids.
	Systems int
	// TimeSteps is the number of distinct time values; small values produce
	// many (time, system) ties. Defaults to Records/4.
	TimeSteps int
	// Bodies per snapshot record. Defaults to 3.
	Bodies int
	// MessageEvery inserts a message record every n records; 0 disables.
	MessageEvery int
	// Skew, when > 0, draws system ids from a Zipf distribution.
	Skew float64
}

// Event describes one generated record.
type Event struct {
	Kind   record.Kind
	Time   float64
	Sys    int32
	Offset int
	Len    int
	Seq    int
}

// Log generates an unsorted payload of mixed records in random order.
// Times are multiples of 0.5.
func (r *RNG) Log(spec LogSpec) ([]byte, []Event) {
	if spec.Systems <= 0 {
		spec.Systems = 1
	}
	if spec.TimeSteps <= 0 {
		spec.TimeSteps = max(spec.Records/4, 1)
	}
	if spec.Bodies <= 0 {
		spec.Bodies = 3
	}

	var (
		payload []byte
		events  = make([]Event, 0, spec.Records)
	)
	for i := range spec.Records {
		off := len(payload)
		ev := Event{Offset: off, Seq: i, Time: -1, Sys: -1}

		if spec.MessageEvery > 0 && i%spec.MessageEvery == spec.MessageEvery-1 {
			ev.Kind = record.KindMessage
			payload = record.AppendMessage(payload, fmt.Sprintf("message %d", i))
		} else {
			ev.Time = float64(r.Intn(spec.TimeSteps)) * 0.5
			if spec.Skew > 0 {
				ev.Sys = int32(r.Zipf(spec.Systems, spec.Skew))
			} else {
				ev.Sys = int32(r.Intn(spec.Systems))
			}
			if r.Intn(2) == 0 {
				ev.Kind = record.KindSnapshot
				payload = record.AppendSnapshot(payload, ev.Time, ev.Sys, int64(i), r.Bodies(spec.Bodies))
			} else {
				ev.Kind = record.Kind(2 + r.Intn(3))
				body := make([]byte, r.Intn(24))
				for j := range body {
					body[j] = byte(i + j)
				}
				payload = record.AppendEvent(payload, ev.Kind, ev.Time, ev.Sys, body)
			}
		}

		ev.Len = len(payload) - off
		events = append(events, ev)
	}
	return payload, events
}

// SortEvents orders events by (time, system, original position).
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Sys, b.Sys); c != 0 {
			return c
		}
		return cmp.Compare(a.Offset, b.Offset)
	})
}

// Reorder returns the payload with events concatenated in the given order,
// updating each event's Offset.
func Reorder(payload []byte, events []Event) []byte {
	out := make([]byte, 0, len(payload))
	for i := range events {
		e := &events[i]
		chunk := payload[e.Offset : e.Offset+e.Len]
		e.Offset = len(out)
		out = append(out, chunk...)
	}
	return out
}

// WriteFile writes a container file with a header tagged typeTag and the
// given payload.
func WriteFile(tb testing.TB, path, typeTag string, payload []byte) {
	tb.Helper()

	hdr := format.NewHeader(typeTag, 0, uint64(len(payload)))
	buf, err := hdr.MarshalBinary()
	if err != nil {
		tb.Fatalf("marshal header: %v", err)
	}
	if err := os.WriteFile(path, append(buf, payload...), 0o644); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
}

// WriteSorted sorts events, writes the reordered payload to path as a sorted
// log and returns the events with their new offsets.
func WriteSorted(tb testing.TB, path string, payload []byte, events []Event) []Event {
	tb.Helper()

	sorted := slices.Clone(events)
	SortEvents(sorted)
	WriteFile(tb, path, format.TypeSorted, Reorder(payload, sorted))
	return sorted
}

// SnapshotLog builds a payload with one snapshot per (time, system) pair of
// nbod bodies each, in time-major order.
func (r *RNG) SnapshotLog(times []float64, systems []int32, nbod int) []byte {
	var payload []byte
	for _, t := range times {
		for _, sys := range systems {
			payload = record.AppendSnapshot(payload, t, sys, int64(sys), r.Bodies(nbod))
		}
	}
	return payload
}

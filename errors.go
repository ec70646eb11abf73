package swarmdb

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when operating on a closed DB.
	ErrClosed = errors.New("swarmdb: closed")
	// ErrBodyCountMismatch is returned when snapshots within one window
	// disagree on the number of bodies.
	ErrBodyCountMismatch = errors.New("swarmdb: body count mismatch")
)

// BodyCountError describes a snapshot whose body count differs from the
// first snapshot of its window.
//
// errors.Is(err, ErrBodyCountMismatch) reports true for it.
type BodyCountError struct {
	Time     float64
	System   int32
	Expected int
	Actual   int
}

func (e *BodyCountError) Error() string {
	return fmt.Sprintf("snapshot of system %d at t=%g has %d bodies, expected %d",
		e.System, e.Time, e.Actual, e.Expected)
}

func (e *BodyCountError) Unwrap() error { return ErrBodyCountMismatch }

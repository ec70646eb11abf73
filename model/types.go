package model

import (
	"cmp"
	"fmt"
)

// RangeKind is the variant of a Range.
type RangeKind uint8

const (
	// RangeAll matches every value.
	RangeAll RangeKind = iota
	// RangeBetween matches the closed interval [First, Last].
	RangeBetween
	// RangePoint matches exactly First.
	RangePoint
)

// Range is a closed set of values used to filter system ids and times.
// The zero value is the unconstrained range.
type Range[T cmp.Ordered] struct {
	kind  RangeKind
	first T
	last  T
}

// All returns the unconstrained range.
func All[T cmp.Ordered]() Range[T] {
	return Range[T]{kind: RangeAll}
}

// Between returns the closed interval [first, last].
// An interval with first > last matches nothing.
func Between[T cmp.Ordered](first, last T) Range[T] {
	return Range[T]{kind: RangeBetween, first: first, last: last}
}

// Point returns the range containing only v.
func Point[T cmp.Ordered](v T) Range[T] {
	return Range[T]{kind: RangePoint, first: v, last: v}
}

// Kind returns the variant.
func (r Range[T]) Kind() RangeKind { return r.kind }

// Constrained reports whether the range restricts values at all.
func (r Range[T]) Constrained() bool { return r.kind != RangeAll }

// Bounds returns the first and last values of a constrained range.
func (r Range[T]) Bounds() (first, last T) { return r.first, r.last }

// First returns the lower bound of a constrained range.
func (r Range[T]) First() T { return r.first }

// Last returns the upper bound of a constrained range.
func (r Range[T]) Last() T { return r.last }

// Contains reports whether v is in the range.
func (r Range[T]) Contains(v T) bool {
	switch r.kind {
	case RangeAll:
		return true
	case RangePoint:
		return v == r.first
	default:
		return r.first <= v && v <= r.last
	}
}

func (r Range[T]) String() string {
	switch r.kind {
	case RangeAll:
		return "all"
	case RangePoint:
		return fmt.Sprint(r.first)
	default:
		return fmt.Sprintf("[%v, %v]", r.first, r.last)
	}
}

// Body is the state of one body: mass, position and velocity.
type Body struct {
	Mass       float64
	X, Y, Z    float64
	VX, VY, VZ float64
}

// BodySize is the encoded size of a Body in a snapshot record.
const BodySize = 7 * 8

package main

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/swarmdb/model"
)

// parseRange parses "", "v" or "lo:hi". An empty side of "lo:hi" is
// unbounded.
func parseRange[T cmp.Ordered](s string, parse func(string) (T, error), lowest, highest T) (model.Range[T], error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ":" {
		return model.All[T](), nil
	}

	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		v, err := parse(s)
		if err != nil {
			return model.Range[T]{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
		return model.Point(v), nil
	}

	first, last := lowest, highest
	var err error
	if lo != "" {
		if first, err = parse(lo); err != nil {
			return model.Range[T]{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
	}
	if hi != "" {
		if last, err = parse(hi); err != nil {
			return model.Range[T]{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
	}
	if last < first {
		return model.Range[T]{}, fmt.Errorf("invalid range %q: upper bound below lower bound", s)
	}
	return model.Between(first, last), nil
}

func parseTimeRange(s string) (model.Range[float64], error) {
	return parseRange(s, func(v string) (float64, error) {
		return strconv.ParseFloat(v, 64)
	}, -math.MaxFloat64, math.MaxFloat64)
}

func parseSysRange(s string) (model.Range[int32], error) {
	return parseRange(s, func(v string) (int32, error) {
		n, err := strconv.ParseInt(v, 10, 32)
		return int32(n), err
	}, 0, math.MaxInt32)
}

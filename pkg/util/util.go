package util

import (
	"math"
	"strconv"
)

// EMA is an exponential moving average. The first value passes through.
type EMA struct {
	alpha, prev float64
	ok          bool
}

func NewEMA(alpha float64) *EMA { return &EMA{alpha: Clamp01(alpha)} }
func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

// Smooth runs a fresh EMA over vs and returns the smoothed series.
func Smooth(alpha float64, vs []float64) []float64 {
	e := NewEMA(alpha)
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = e.Next(v)
	}
	return out
}

func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	// guard against NaN
	if math.IsNaN(x) {
		return 0
	}
	return x
}

// FmtFloat formats f with the fewest digits that round-trip.
func FmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// ClipInterval is a wrapper to use Clip with an r1.Interval instead of
// a separate max and min value
func ClipInterval(value float64, interval r1.Interval) float64 {
	return Clip(value, interval.Min, interval.Max)
}

// Argmax returns the index of the first maximum value in a slice of
// float64. Argmax panics on an empty slice.
func Argmax(values []float64) int {
	if len(values) == 0 {
		panic("argmax: empty slice")
	}

	max, idx := values[0], 0
	for i, value := range values {
		if value > max {
			max = value
			idx = i
		}
	}
	return idx
}

// Sign returns -1.0 for negative values, 1.0 for positive values, and
// 0.0 for 0.0
func Sign(value float64) float64 {
	switch {
	case value < 0:
		return -1.0
	case value > 0:
		return 1.0
	default:
		return 0.0
	}
}

// Wrap wraps value into the interval [min, max). For example, wrapping
// angles into [-π, π) gives the equivalent angle in that interval.
func Wrap(value, min, max float64) float64 {
	width := max - min
	if width <= 0 {
		panic("wrap: max must exceed min")
	}

	wrapped := math.Mod(value-min, width)
	if wrapped < 0 {
		wrapped += width
	}
	return wrapped + min
}

package utils

import (
	"cmp"
	"math"
)

// floorTolerance absorbs binary representation noise such as 120000*0.18 = 21599.999...
const floorTolerance = 1e-9

// Clamp limits a value between min and max
func Clamp[T cmp.Ordered](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RoundTo rounds a float to specified decimal places
func RoundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// RoundInt rounds half away from zero and converts to int
func RoundInt(value float64) int {
	return int(math.Round(value))
}

// FloorInt truncates towards negative infinity, tolerating values that sit
// a hair below an integer because of float arithmetic.
func FloorInt(value float64) int {
	return int(math.Floor(value + floorTolerance))
}

// RoundToNearest rounds value to the nearest multiple of step.
func RoundToNearest(value, step int) int {
	if step <= 0 {
		return value
	}
	return step * RoundInt(float64(value)/float64(step))
}

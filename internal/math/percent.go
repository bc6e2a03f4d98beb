package math

import "math"

// AddPercentage returns value raised by percentage percent
func AddPercentage(value, percentage float64) float64 {
	return value * (1 + percentage/100.0)
}

// SubtractPercentage returns value lowered by percentage percent
func SubtractPercentage(value, percentage float64) float64 {
	return value * (1 - percentage/100.0)
}

// PercentChange is the signed move from base to value, in percent of base
func PercentChange(base, value float64) float64 {
	if base == 0 {
		return 0
	}
	return (value - base) / base * 100
}

// PercentDistance is the absolute move from base to value, in percent of base
func PercentDistance(base, value float64) float64 {
	return math.Abs(PercentChange(base, value))
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

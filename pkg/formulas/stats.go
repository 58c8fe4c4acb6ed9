package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean of values. An empty series yields 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// PctChange returns the percentage change of current against a reference
// price, e.g. PctChange(110, 100) = 10. A zero reference yields 0.
func PctChange(current, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return (current/reference - 1) * 100
}

package formulas

import (
	"github.com/markcheno/go-talib"
)

// RollingMean calculates a simple moving average series over values.
//
// Positions before the window fills use an expanding mean of all values seen
// so far, so the series is defined from the first element onward and never
// carries NaN padding.
//
// Args:
//
//	values: input series (e.g. closing prices)
//	window: rolling window length
//
// Returns:
//
//	A series with the same length as values, or nil for invalid input
func RollingMean(values []float64, window int) []float64 {
	if window <= 0 || len(values) == 0 {
		return nil
	}

	out := make([]float64, len(values))

	// Full-window region via go-talib when the series is long enough
	if len(values) >= window {
		copy(out, talib.Sma(values, window))
	}

	// Expanding means cover the warm-up region, and the whole series when it
	// is shorter than the window
	sum := 0.0
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i < window-1 || len(values) < window {
			out[i] = sum / float64(i+1)
		}
	}

	return out
}

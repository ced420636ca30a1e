package scaling

import (
	"math"
)

// Standardize rescales values to zero mean and unit variance. A
// constant column has no variance to rescale, so it maps to all zeros.
// The detector never consumes scaled values; this exists only for
// feature-column export.
func Standardize(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	std := math.Sqrt(variance)

	scaled := make([]float64, len(values))
	if std == 0 {
		return scaled
	}
	for i, v := range values {
		scaled[i] = (v - mean) / std
	}
	return scaled
}

// StandardizeColumns applies Standardize to every column independently.
func StandardizeColumns(columns map[string][]float64) map[string][]float64 {
	scaled := make(map[string][]float64, len(columns))
	for name, values := range columns {
		scaled[name] = Standardize(values)
	}
	return scaled
}

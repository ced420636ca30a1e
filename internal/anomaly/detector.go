package anomaly

import (
	"errors"
	"math"
	"sort"
)

// ErrInsufficientData is returned by callers that require a non-empty
// series and received none. Detection itself is total: an empty input
// yields an empty result, not an error.
var ErrInsufficientData = errors.New("insufficient data: empty transaction series")

// Point is the detection output for one position of the series.
type Point struct {
	RollingSum float64
	IsAnomaly  bool
}

// Result holds the labeled series and the threshold it was labeled
// against. The threshold is a pure function of this run's rolling sums
// and has no meaning outside it.
type Result struct {
	Points    []Point
	Threshold float64
}

// AnomalyCount returns the number of flagged positions.
func (r Result) AnomalyCount() int {
	count := 0
	for _, p := range r.Points {
		if p.IsAnomaly {
			count++
		}
	}
	return count
}

// Detector flags spending spikes: positions whose trailing-window sum
// strictly exceeds a high quantile of all window sums in the run.
type Detector struct {
	windowSize int
	quantile   float64
}

// NewDetector creates a detector with the given trailing window size
// and threshold quantile.
func NewDetector(windowSize int, quantile float64) *Detector {
	return &Detector{
		windowSize: windowSize,
		quantile:   quantile,
	}
}

// RollingSums computes the trailing-window sum at every position. The
// window is left-truncated: the first windowSize-1 positions sum over
// however many amounts exist, never zero-padded.
func (d *Detector) RollingSums(amounts []float64) []float64 {
	sums := make([]float64, len(amounts))
	running := 0.0
	for i, amount := range amounts {
		running += amount
		if i >= d.windowSize {
			running -= amounts[i-d.windowSize]
		}
		sums[i] = running
	}
	return sums
}

// Detect labels each position of an ordered amount series. A position
// is anomalous when its rolling sum is strictly greater than the
// quantile threshold; a sum exactly equal to the threshold is not
// flagged.
func (d *Detector) Detect(amounts []float64) Result {
	if len(amounts) == 0 {
		return Result{}
	}

	sums := d.RollingSums(amounts)
	threshold := Quantile(sums, d.quantile)

	points := make([]Point, len(sums))
	for i, sum := range sums {
		points[i] = Point{
			RollingSum: sum,
			IsAnomaly:  sum > threshold,
		}
	}

	return Result{Points: points, Threshold: threshold}
}

// Quantile estimates the q-quantile of values by linear interpolation
// between order statistics: rank position q*(N-1), interpolated between
// the floor and ceil ranks. values is not modified.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}

	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

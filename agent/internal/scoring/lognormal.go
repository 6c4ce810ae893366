package scoring

import "math"

// Calibration for the time-to-interactive score curve, in milliseconds.
const (
	// Median is the elapsed time that scores exactly 50.
	Median = 10000

	// PointOfDiminishingReturns is where the curve's falloff begins to
	// flatten: times near it are scored favorably, while larger delays
	// decay smoothly toward zero.
	PointOfDiminishingReturns = 1700
)

// Curve is an immutable log-normal scoring curve. The zero value is not
// usable; construct with NewCurve.
type Curve struct {
	location float64
	shape    float64
}

// NewCurve builds a log-normal curve with the given median and point of
// diminishing returns. The point of diminishing returns is the smaller
// positive root of the third derivative of the log-normal CDF; the shape
// parameter is derived from it and the median.
func NewCurve(median, podr float64) Curve {
	logRatio := math.Log(podr / median)
	shape := math.Sqrt(1-3*logRatio-math.Sqrt((logRatio-3)*(logRatio-3)-8)) / 2
	return Curve{
		location: math.Log(median),
		shape:    shape,
	}
}

// ComplementaryPercentile returns the fraction of the distribution at or
// above x, in [0, 1]. Smaller x yields a larger result; x at the median
// yields exactly 0.5. Non-positive x is treated as instantaneous and
// returns 1.
func (c Curve) ComplementaryPercentile(x float64) float64 {
	if x <= 0 {
		return 1
	}
	standardized := (math.Log(x) - c.location) / (math.Sqrt2 * c.shape)
	return (1 - math.Erf(standardized)) / 2
}

// Score maps elapsed milliseconds to an integer score in [0, 100].
func (c Curve) Score(elapsedMs float64) int {
	s := math.Round(100 * c.ComplementaryPercentile(elapsedMs))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return int(s)
}

package skew

import (
	"math"
	"sort"
)

// NormalizeAngle folds an angle in degrees into (-90, 90] by adding or
// subtracting 180. Non-finite values are returned unchanged.
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}
	a = math.Mod(a, 180)
	for a <= -90 {
		a += 180
	}
	for a > 90 {
		a -= 180
	}
	return a
}

// Fuse combines estimator outputs into the rotation to apply.
//
// Each present, finite estimate is normalized and the median of those values
// is returned together with how many took part. The median keeps a single
// wild estimator (for example line detection on a sparse page) from dragging
// the result. With no usable estimate the angle is 0 and used is 0.
func Fuse(estimates ...Estimate) (angle float64, used int) {
	vals := make([]float64, 0, len(estimates))
	for _, e := range estimates {
		if !e.OK || math.IsNaN(e.Angle) || math.IsInf(e.Angle, 0) {
			continue
		}
		vals = append(vals, NormalizeAngle(e.Angle))
	}
	if len(vals) == 0 {
		return 0, 0
	}
	return median(vals), len(vals)
}

// median returns the middle value of vals, averaging the two middle values
// for an even count. vals is not modified.
func median(vals []float64) float64 {
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

package skew

import "fmt"

// Method identifies one of the angle estimators.
type Method int

const (
	// MethodMinArea fits a minimum-area rotated rectangle around the ink.
	MethodMinArea Method = iota
	// MethodPrincipalAxis takes the direction of greatest variance of the ink.
	MethodPrincipalAxis
	// MethodHough takes the median angle of near-horizontal line segments.
	MethodHough
)

// Methods lists every estimator in the order they run.
var Methods = []Method{MethodMinArea, MethodPrincipalAxis, MethodHough}

func (m Method) String() string {
	switch m {
	case MethodMinArea:
		return "min_area"
	case MethodPrincipalAxis:
		return "principal_axis"
	case MethodHough:
		return "hough"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// MarshalText encodes the method by name.
func (m Method) MarshalText() ([]byte, error) {
	switch m {
	case MethodMinArea, MethodPrincipalAxis, MethodHough:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown skew method %d", int(m))
}

// UnmarshalText decodes a method name produced by MarshalText.
func (m *Method) UnmarshalText(b []byte) error {
	for _, cand := range Methods {
		if cand.String() == string(b) {
			*m = cand
			return nil
		}
	}
	return fmt.Errorf("unknown skew method %q", string(b))
}

// Estimate is the output of one estimator: a deskew angle in degrees, or
// nothing when the estimator found too little signal.
//
// The angle is the counter-clockwise rotation (as the page is viewed) that
// levels the content. A baseline running down to the right at a degrees
// yields an estimate of +a.
type Estimate struct {
	Method Method  `json:"method"`
	Angle  float64 `json:"angle_degrees"`
	OK     bool    `json:"ok"`
}

// Present returns an estimate holding angle.
func Present(m Method, angle float64) Estimate {
	return Estimate{Method: m, Angle: angle, OK: true}
}

// Absent returns an estimate that holds no angle.
func Absent(m Method) Estimate {
	return Estimate{Method: m}
}

func (e Estimate) String() string {
	if !e.OK {
		return e.Method.String() + "=none"
	}
	return fmt.Sprintf("%s=%.3f", e.Method, e.Angle)
}

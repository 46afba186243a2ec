package skew

import (
	"image"
	"math"
	"math/rand"

	"github.com/ironsheep/scan-align/internal/imaging"
)

// HoughParams tunes the line-segment estimator.
type HoughParams struct {
	// CannyLow and CannyHigh are the hysteresis thresholds of the edge map.
	CannyLow  int `yaml:"canny_low" json:"canny_low"`
	CannyHigh int `yaml:"canny_high" json:"canny_high"`
	// Threshold is the accumulator vote count that triggers a line walk.
	Threshold int `yaml:"threshold" json:"threshold"`
	// MinLineLength is the shortest segment, in pixels, that is reported.
	MinLineLength int `yaml:"min_line_length" json:"min_line_length"`
	// MaxLineGap is the longest run of missing edge pixels bridged within one segment.
	MaxLineGap int `yaml:"max_line_gap" json:"max_line_gap"`
	// MaxAngle discards segments steeper than this many degrees from horizontal.
	MaxAngle float64 `yaml:"max_angle" json:"max_angle"`
	// Seed fixes the order in which edge pixels are visited.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultHoughParams returns parameters tuned for ruled and printed lines.
func DefaultHoughParams() HoughParams {
	return HoughParams{
		CannyLow:      50,
		CannyHigh:     150,
		Threshold:     100,
		MinLineLength: 100,
		MaxLineGap:    20,
		MaxAngle:      45,
		Seed:          0x5eed,
	}
}

// Segment is a detected line segment in pixel coordinates.
type Segment struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Angle returns the segment direction in degrees, normalized into (-90, 90].
func (s Segment) Angle() float64 {
	return NormalizeAngle(math.Atan2(float64(s.Y2-s.Y1), float64(s.X2-s.X1)) * 180 / math.Pi)
}

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return math.Hypot(float64(s.X2-s.X1), float64(s.Y2-s.Y1))
}

// HoughAngle estimates skew from straight segments in the grayscale page.
//
// Segments steeper than p.MaxAngle are treated as noise rather than page
// skew, which biases the estimator toward ruling and text baselines. The
// median of the surviving segment angles is returned.
func HoughAngle(gray *image.Gray, p HoughParams) Estimate {
	edges := imaging.Canny(gray, p.CannyLow, p.CannyHigh)
	segs := DetectSegments(edges, p)

	angles := make([]float64, 0, len(segs))
	for _, s := range segs {
		if s.X1 == s.X2 && s.Y1 == s.Y2 {
			continue
		}
		a := s.Angle()
		if math.Abs(a) < p.MaxAngle {
			angles = append(angles, a)
		}
	}
	if len(angles) == 0 {
		return Absent(MethodHough)
	}
	return Present(MethodHough, median(angles))
}

// pixel states of the probabilistic transform
const (
	pxEmpty uint8 = iota
	pxPending
	pxVoted
)

// DetectSegments finds line segments in a binary edge map with the
// progressive probabilistic Hough transform.
//
// Edge pixels are visited in a seeded random order and vote into a
// (theta, rho) accumulator with 1 degree and 1 pixel resolution. As soon as a
// bin reaches p.Threshold the line through the current pixel is walked in both
// directions, bridging gaps up to p.MaxLineGap. Pixels on the walked span are
// removed from further consideration; if the span is at least
// p.MinLineLength long it is reported and its votes are withdrawn.
func DetectSegments(edges *image.Gray, p HoughParams) []Segment {
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	const numAngle = 180
	numRho := 2*(w+h) + 1
	rhoOffset := (numRho - 1) / 2

	var cosT, sinT [numAngle]float64
	for n := 0; n < numAngle; n++ {
		theta := float64(n) * math.Pi / numAngle
		cosT[n] = math.Cos(theta)
		sinT[n] = math.Sin(theta)
	}

	state := make([]uint8, w*h)
	points := make([]image.Point, 0, 1024)
	for y := 0; y < h; y++ {
		row := edges.Pix[y*edges.Stride : y*edges.Stride+w]
		for x, v := range row {
			if v != 0 {
				state[y*w+x] = pxPending
				points = append(points, image.Point{X: x, Y: y})
			}
		}
	}
	if len(points) == 0 {
		return nil
	}

	accum := make([]int32, numAngle*numRho)
	vote := func(x, y int, delta int32) (int32, int) {
		var best int32
		bestN := 0
		for n := 0; n < numAngle; n++ {
			r := int(math.Round(float64(x)*cosT[n]+float64(y)*sinT[n])) + rhoOffset
			i := n*numRho + r
			accum[i] += delta
			if accum[i] > best {
				best = accum[i]
				bestN = n
			}
		}
		return best, bestN
	}

	// walk visits the pixels of the line through (x0, y0) in direction dir,
	// calling visit until it returns false or the image edge is reached.
	walk := func(x0, y0 int, stepX, stepY float64, visit func(x, y int) bool) {
		fx, fy := float64(x0), float64(y0)
		for {
			x, y := int(math.Round(fx)), int(math.Round(fy))
			if x < 0 || y < 0 || x >= w || y >= h {
				return
			}
			if !visit(x, y) {
				return
			}
			fx += stepX
			fy += stepY
		}
	}

	rng := rand.New(rand.NewSource(p.Seed))
	var segments []Segment

	for _, idx := range rng.Perm(len(points)) {
		pt := points[idx]
		if state[pt.Y*w+pt.X] != pxPending {
			continue
		}
		state[pt.Y*w+pt.X] = pxVoted
		maxVal, maxN := vote(pt.X, pt.Y, 1)
		if int(maxVal) < p.Threshold {
			continue
		}

		// Line direction is perpendicular to the normal (cos, sin).
		a, b := -sinT[maxN], cosT[maxN]
		var stepX, stepY float64
		if math.Abs(a) > math.Abs(b) {
			stepX, stepY = math.Copysign(1, a), b/math.Abs(a)
		} else {
			stepX, stepY = a/math.Abs(b), math.Copysign(1, b)
		}

		var ends [2]image.Point
		for k := 0; k < 2; k++ {
			sx, sy := stepX, stepY
			if k == 1 {
				sx, sy = -sx, -sy
			}
			gap := 0
			ends[k] = pt
			walk(pt.X, pt.Y, sx, sy, func(x, y int) bool {
				if state[y*w+x] != pxEmpty {
					gap = 0
					ends[k] = image.Point{X: x, Y: y}
					return true
				}
				gap++
				return gap <= p.MaxLineGap
			})
		}

		dx := ends[1].X - ends[0].X
		dy := ends[1].Y - ends[0].Y
		good := abs(dx) >= p.MinLineLength || abs(dy) >= p.MinLineLength

		for k := 0; k < 2; k++ {
			sx, sy := stepX, stepY
			if k == 1 {
				sx, sy = -sx, -sy
			}
			end := ends[k]
			walk(pt.X, pt.Y, sx, sy, func(x, y int) bool {
				i := y*w + x
				if state[i] == pxVoted && good {
					vote(x, y, -1)
				}
				state[i] = pxEmpty
				return x != end.X || y != end.Y
			})
		}

		if good {
			segments = append(segments, Segment{X1: ends[1].X, Y1: ends[1].Y, X2: ends[0].X, Y2: ends[0].Y})
		}
	}

	return segments
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

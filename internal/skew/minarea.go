package skew

import (
	"image"
	"math"
	"sort"
)

// MinPixels is the number of ink pixels below which the pixel-based
// estimators report no angle.
const MinPixels = 10

// RotatedRect is a rectangle of arbitrary orientation.
//
// Angle is reported in [-90, 0): it is the counter-clockwise angle, with the
// y axis pointing up, from the x axis to one of the rectangle's edges. Width
// runs along that edge.
type RotatedRect struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Angle   float64 `json:"angle"`
}

// Area returns Width*Height.
func (r RotatedRect) Area() float64 { return r.Width * r.Height }

// MinAreaAngle estimates skew from the minimum-area rectangle enclosing every
// ink pixel.
//
// The rectangle's orientation is folded into a deskew rotation: below -45
// degrees the rectangle is read as standing on its other edge.
func MinAreaAngle(ink *image.Gray) Estimate {
	pts, n := rowExtremes(ink)
	if n < MinPixels {
		return Absent(MethodMinArea)
	}
	rect := MinAreaRect(pts)
	if rect.Angle < -45 {
		return Present(MethodMinArea, -(90 + rect.Angle))
	}
	return Present(MethodMinArea, -rect.Angle)
}

// MinAreaRect returns the smallest-area rectangle enclosing pts.
//
// It uses rotating calipers over the convex hull: the optimal rectangle has
// one side collinear with a hull edge.
func MinAreaRect(pts []image.Point) RotatedRect {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return RotatedRect{Angle: -90}
	case 1:
		return RotatedRect{CenterX: float64(hull[0].X), CenterY: float64(hull[0].Y), Angle: -90}
	}

	best := RotatedRect{}
	bestArea := math.Inf(1)
	for i := range hull {
		a := hull[i]
		b := hull[(i+1)%len(hull)]
		ex, ey := float64(b.X-a.X), float64(b.Y-a.Y)
		l := math.Hypot(ex, ey)
		if l == 0 {
			continue
		}
		ux, uy := ex/l, ey/l
		vx, vy := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := float64(p.X-a.X), float64(p.Y-a.Y)
			u := px*ux + py*uy
			v := px*vx + py*vy
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		area := (maxU - minU) * (maxV - minV)
		if area < bestArea {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = RotatedRect{
				CenterX: float64(a.X) + cu*ux + cv*vx,
				CenterY: float64(a.Y) + cu*uy + cv*vy,
				Width:   maxU - minU,
				Height:  maxV - minV,
				Angle:   edgeAngle(ux, uy),
			}
		}
	}
	return best
}

// edgeAngle converts an image-space direction (y down) into the rectangle
// angle convention: y up, folded into [-90, 0).
func edgeAngle(ux, uy float64) float64 {
	a := math.Mod(-math.Atan2(uy, ux)*180/math.Pi, 90)
	if a < 0 {
		a += 90
	}
	return a - 90
}

// ConvexHull returns the convex hull of pts in counter-clockwise order
// (y down), without collinear points.
func ConvexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		out := make([]image.Point, 0, len(pts))
		for _, p := range pts {
			if len(out) == 0 || out[len(out)-1] != p {
				out = append(out, p)
			}
		}
		return out
	}

	sorted := make([]image.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// rowExtremes returns the leftmost and rightmost ink pixel of every row,
// which share their convex hull with the full ink set, together with the
// total ink pixel count.
func rowExtremes(ink *image.Gray) ([]image.Point, int) {
	w, h := ink.Rect.Dx(), ink.Rect.Dy()
	pts := make([]image.Point, 0, 2*h)
	n := 0
	for y := 0; y < h; y++ {
		row := ink.Pix[y*ink.Stride : y*ink.Stride+w]
		first, last := -1, -1
		for x, v := range row {
			if v == 0 {
				continue
			}
			n++
			if first < 0 {
				first = x
			}
			last = x
		}
		if first < 0 {
			continue
		}
		pts = append(pts, image.Point{X: first, Y: y})
		if last != first {
			pts = append(pts, image.Point{X: last, Y: y})
		}
	}
	return pts, n
}

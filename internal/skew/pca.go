package skew

import (
	"image"
	"math"
)

// PrincipalAxisAngle estimates skew from the direction of greatest variance of
// the ink pixels.
//
// Coordinates are accumulated as (row, col). The first right singular vector
// of the centred N x 2 coordinate matrix is the leading eigenvector of its
// 2 x 2 scatter matrix, which is solved in closed form.
func PrincipalAxisAngle(ink *image.Gray) Estimate {
	w, h := ink.Rect.Dx(), ink.Rect.Dy()

	var n, sr, sc float64
	for y := 0; y < h; y++ {
		row := ink.Pix[y*ink.Stride : y*ink.Stride+w]
		for x, v := range row {
			if v == 0 {
				continue
			}
			n++
			sr += float64(y)
			sc += float64(x)
		}
	}
	if n < MinPixels {
		return Absent(MethodPrincipalAxis)
	}
	mr, mc := sr/n, sc/n

	// Second pass on centred values keeps the sums well conditioned on
	// large pages.
	var srr, scc, src float64
	for y := 0; y < h; y++ {
		row := ink.Pix[y*ink.Stride : y*ink.Stride+w]
		dr := float64(y) - mr
		for x, v := range row {
			if v == 0 {
				continue
			}
			dc := float64(x) - mc
			srr += dr * dr
			scc += dc * dc
			src += dr * dc
		}
	}

	v := principalAxis(srr, src, scc)
	// v is (row, col); rows grow downward, so the axis angle on the page
	// is atan2(-row, col).
	axis := math.Atan2(-v[0], v[1]) * 180 / math.Pi
	return Present(MethodPrincipalAxis, -axis)
}

// principalAxis returns the unit eigenvector of [[a b] [b d]] belonging to the
// larger eigenvalue.
func principalAxis(a, b, d float64) [2]float64 {
	if b == 0 {
		if a >= d {
			return [2]float64{1, 0}
		}
		return [2]float64{0, 1}
	}
	half := (a - d) / 2
	lambda := (a+d)/2 + math.Sqrt(half*half+b*b)
	x, y := lambda-d, b
	l := math.Hypot(x, y)
	return [2]float64{x / l, y / l}
}

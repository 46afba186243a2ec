package cleanup

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// Bilateral smooths g while preserving edges.
//
// Each output pixel is a weighted mean over a disc of the given diameter. The
// weight of a neighbour falls off with its distance (sigmaSpace) and with its
// intensity difference from the centre (sigmaColor), so pixels across a
// stroke boundary barely contribute. Neighbours outside the image repeat the
// nearest edge pixel.
func Bilateral(g *image.Gray, diameter int, sigmaColor, sigmaSpace float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	radius := diameter / 2
	if radius < 1 || w == 0 || h == 0 {
		copyGray(out, g)
		return out
	}

	type tap struct {
		dx, dy int
		weight float64
	}
	var taps []tap
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if r2 > float64(radius*radius) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(r2 * spaceCoeff)})
		}
	}

	var colorWeight [256]float64
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	for d := range colorWeight {
		colorWeight[d] = math.Exp(float64(d*d) * colorCoeff)
	}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				c := int(g.Pix[y*g.Stride+x])
				var sum, norm float64
				for _, t := range taps {
					px := clampInt(x+t.dx, 0, w-1)
					py := clampInt(y+t.dy, 0, h-1)
					v := int(g.Pix[py*g.Stride+px])
					d := v - c
					if d < 0 {
						d = -d
					}
					wt := t.weight * colorWeight[d]
					sum += wt * float64(v)
					norm += wt
				}
				dst[x] = uint8(math.Round(sum / norm))
			}
		}
	})
	return out
}

func copyGray(dst, src *image.Gray) {
	w := src.Rect.Dx()
	for y := 0; y < src.Rect.Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[y*src.Stride:y*src.Stride+w])
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/parallel"
)

// Erode replaces each pixel with the minimum over a size x size square
// anchored like OpenCV's default: for even sizes the extra row and column lie
// before the pixel. Out-of-image neighbours are ignored.
func Erode(g *image.Gray, size int) *image.Gray {
	return rankFilter(g, size, func(a, b uint8) bool { return a < b })
}

// Dilate replaces each pixel with the maximum over a size x size square.
func Dilate(g *image.Gray, size int) *image.Gray {
	return rankFilter(g, size, func(a, b uint8) bool { return a > b })
}

// MorphOpen is an erosion followed by a dilation. It removes foreground specks
// smaller than the structuring element while keeping stroke shape.
func MorphOpen(g *image.Gray, size int) *image.Gray {
	return Dilate(Erode(g, size), size)
}

// rankFilter runs a separable min or max filter: rows first, then columns.
func rankFilter(g *image.Gray, size int, better func(a, b uint8) bool) *image.Gray {
	if size <= 1 {
		return cloneGray(g)
	}
	w, h := g.Rect.Dx(), g.Rect.Dy()
	// neighbours span [x-size/2, x+(size-1)/2]
	lo, hi := size/2, (size-1)/2

	tmp := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			src := g.Pix[y*g.Stride:]
			dst := tmp.Pix[y*tmp.Stride:]
			for x := 0; x < w; x++ {
				v := src[x]
				for k := x - lo; k <= x+hi; k++ {
					if k < 0 || k >= w || k == x {
						continue
					}
					if better(src[k], v) {
						v = src[k]
					}
				}
				dst[x] = v
			}
		}
	})

	out := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				v := tmp.Pix[y*tmp.Stride+x]
				for k := y - lo; k <= y+hi; k++ {
					if k < 0 || k >= h || k == y {
						continue
					}
					if c := tmp.Pix[k*tmp.Stride+x]; better(c, v) {
						v = c
					}
				}
				dst[x] = v
			}
		}
	})
	return out
}

package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/parallel"
)

// AdaptiveThreshold binarizes g against a Gaussian-weighted local mean.
//
// A pixel becomes 255 when its value is strictly greater than the mean of its
// block x block neighbourhood minus offset, and 0 otherwise. Block must be odd
// and at least 3. Because the cutoff follows the local mean, the result is
// stable under uneven illumination across a page.
func AdaptiveThreshold(g *image.Gray, block int, offset float64) *image.Gray {
	if block < 3 {
		block = 3
	}
	if block%2 == 0 {
		block++
	}
	mean := GaussianBlur(g, KernelSigma(block))

	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			src := g.Pix[y*g.Stride:]
			m := mean.Pix[y*mean.Stride:]
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				if float64(src[x]) > float64(m[x])-offset {
					dst[x] = 255
				}
			}
		}
	})
	return out
}

// OtsuThreshold returns the global threshold t that maximizes the
// between-class variance of the classes {v <= t} and {v > t}.
//
// For an image with a single intensity level every split leaves one class
// empty and 0 is returned.
func OtsuThreshold(g *image.Gray) uint8 {
	bins := Histogram(g)
	total := 0
	var sumAll float64
	for i, n := range bins {
		total += n
		sumAll += float64(i * n)
	}
	if total == 0 {
		return 0
	}

	var (
		best    uint8
		bestVar float64
		sumB    float64
		wB      int
	)
	for t := 0; t < 256; t++ {
		wB += bins[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * bins[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > bestVar {
			bestVar = between
			best = uint8(t)
		}
	}
	return best
}

// Binarize maps values greater than t to 255 and the rest to 0.
func Binarize(g *image.Gray, t uint8) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			if src[x] > t {
				dst[x] = 255
			}
		}
	}
	return out
}

// Invert returns 255-v for every pixel.
func Invert(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = 255 - src[x]
		}
	}
	return out
}

// CountNonZero returns the number of pixels in g that are not 0.
func CountNonZero(g *image.Gray) int {
	n := 0
	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/histogram"
	"github.com/disintegration/imaging"
)

// ToGray converts img to an 8-bit grayscale image whose bounds start at (0,0).
//
// Every other helper in this package indexes Pix directly and relies on the
// zero origin, so callers should always go through ToGray first.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	// bild returns the luma replicated into R, G and B of an RGBA.
	src := effect.Grayscale(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = row[x*4]
		}
	}
	return out
}

// Histogram returns the 256-bin intensity histogram of a grayscale image.
func Histogram(g *image.Gray) [256]int {
	var bins [256]int
	// A gray image has identical R, G and B channels; any of them will do.
	h := histogram.NewRGBAHistogram(g)
	copy(bins[:], h.R.Bins)
	return bins
}

// EqualizeHist spreads the intensities of g over the full 0-255 range.
//
// The remap is the cumulative distribution of the histogram, anchored so the
// darkest present level maps to 0. A single-level image is returned as a copy.
func EqualizeHist(g *image.Gray) *image.Gray {
	bins := Histogram(g)
	total := g.Rect.Dx() * g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, g.Rect.Dx(), g.Rect.Dy()))
	if total == 0 {
		return out
	}

	first := 0
	for first < 255 && bins[first] == 0 {
		first++
	}

	var lut [256]uint8
	if bins[first] == total {
		for i := range lut {
			lut[i] = uint8(first)
		}
	} else {
		scale := 255.0 / float64(total-bins[first])
		sum := 0
		for i := first + 1; i < 256; i++ {
			sum += bins[i]
			v := math.Round(float64(sum) * scale)
			if v > 255 {
				v = 255
			}
			lut[i] = uint8(v)
		}
	}

	w, h := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, v := range src {
			dst[x] = lut[v]
		}
	}
	return out
}

// GaussianBlur smooths g with a Gaussian of the given standard deviation.
// Border pixels are weighted only by in-image neighbours.
func GaussianBlur(g *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return cloneGray(g)
	}
	return fromNRGBA(imaging.Blur(g, sigma))
}

// KernelSigma returns the Gaussian sigma matching a square kernel of size k,
// using the usual 0.3*((k-1)*0.5-1)+0.8 rule.
func KernelSigma(k int) float64 {
	return 0.3*((float64(k)-1)*0.5-1) + 0.8
}

// fromNRGBA takes the red channel of an NRGBA produced from a gray source.
func fromNRGBA(src *image.NRGBA) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = row[x*4]
		}
	}
	return out
}

func cloneGray(g *image.Gray) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, g.Rect.Dx(), g.Rect.Dy()))
	w := g.Rect.Dx()
	for y := 0; y < g.Rect.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+w], g.Pix[y*g.Stride:y*g.Stride+w])
	}
	return out
}

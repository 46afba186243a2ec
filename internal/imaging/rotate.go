package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate turns img about its centre by degrees and returns an image of the
// same size.
//
// Positive angles rotate counter-clockwise as the page is viewed. Samples are
// taken with Catmull-Rom (cubic) interpolation. Destination pixels whose
// source falls outside the page repeat the nearest edge pixel, so no black
// wedges appear in the corners.
//
// The result is *image.Gray for grayscale input and *image.RGBA otherwise.
func Rotate(img image.Image, degrees float64) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst draw.Image
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		dst = image.NewGray(image.Rect(0, 0, w, h))
	default:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	if w == 0 || h == 0 {
		return dst
	}

	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx := float64(b.Min.X) + float64(w)/2
	cy := float64(b.Min.Y) + float64(h)/2
	ox, oy := float64(w)/2, float64(h)/2

	// Source to destination, y pointing down:
	//   dx =  cos*(sx-cx) + sin*(sy-cy) + ox
	//   dy = -sin*(sx-cx) + cos*(sy-cy) + oy
	s2d := f64.Aff3{
		cos, sin, ox - cos*cx - sin*cy,
		-sin, cos, oy + sin*cx - cos*cy,
	}

	// Any destination pixel maps within half a diagonal of the centre.
	margin := int(math.Ceil(math.Hypot(float64(w), float64(h))/2)) + 4
	src := &replicateBorder{img: img, inner: b, outer: b.Inset(-margin)}
	xdraw.CatmullRom.Transform(dst, s2d, src, src.outer, xdraw.Src, nil)
	return dst
}

// replicateBorder extends an image past its bounds by repeating edge pixels.
type replicateBorder struct {
	img   image.Image
	inner image.Rectangle
	outer image.Rectangle
}

func (r *replicateBorder) ColorModel() color.Model { return r.img.ColorModel() }

func (r *replicateBorder) Bounds() image.Rectangle { return r.outer }

func (r *replicateBorder) At(x, y int) color.Color {
	return r.img.At(
		clamp(x, r.inner.Min.X, r.inner.Max.X-1),
		clamp(y, r.inner.Min.Y, r.inner.Max.Y-1),
	)
}

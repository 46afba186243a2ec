package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ContentBounds locates the content of a page.
//
// The image is binarized with Otsu's threshold and inverted so that dark
// content is foreground; the returned rectangle is the axis-aligned bounding
// box of all foreground pixels, in img's coordinate space. ok is false when
// no foreground pixel exists.
func ContentBounds(img image.Image) (r image.Rectangle, ok bool) {
	g := ToGray(img)
	t := OtsuThreshold(g)
	w, h := g.Rect.Dx(), g.Rect.Dy()

	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			// binarized value is 255 above t; inverted foreground is v <= t
			if row[x] > t {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return image.Rectangle{}, false
	}

	off := img.Bounds().Min
	return image.Rect(minX, minY, maxX+1, maxY+1).Add(off), true
}

// CropToContent crops img to ContentBounds. When no content is found the
// input is returned unchanged with cropped=false.
func CropToContent(img image.Image) (out image.Image, box image.Rectangle, cropped bool) {
	box, ok := ContentBounds(img)
	if !ok {
		return img, img.Bounds(), false
	}
	return imaging.Crop(img, box), box, true
}

// Crop extracts a rectangular region from an image and returns it as PNG.
// A scale other than 1 resizes the crop with a Lanczos filter.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*EncodedImage, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return EncodePNG(cropped)
}

package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"
)

// Default overlay colours.
const (
	DefaultMaskColor  = "#E4572E"
	DefaultGuideColor = "#1F77B4"
)

// GuideOverlay draws full-width horizontal guide lines every spacing pixels.
// Text baselines on a properly levelled page run parallel to the guides,
// which makes residual skew easy to spot in debug output.
func GuideOverlay(img image.Image, spacing int, hex string) (*image.RGBA, error) {
	if spacing <= 0 {
		return nil, fmt.Errorf("guide spacing must be positive, got %d", spacing)
	}
	c, err := parseHexColor(hex)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	line := color.RGBAModel.Convert(c).(color.RGBA)
	for y := spacing; y < bounds.Dy(); y += spacing {
		for x := 0; x < bounds.Dx(); x++ {
			result.SetRGBA(x, y, line)
		}
	}
	return result, nil
}

// MaskOverlay tints every pixel of img that is set in mask. The tint is a
// 60/40 blend in Lab space, so ink underneath stays readable.
func MaskOverlay(img image.Image, mask *image.Gray, hex string) (*image.RGBA, error) {
	tint, err := parseHexColor(hex)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if mask.Rect.Dx() != bounds.Dx() || mask.Rect.Dy() != bounds.Dy() {
		return nil, fmt.Errorf("mask size %dx%d does not match image size %dx%d",
			mask.Rect.Dx(), mask.Rect.Dy(), bounds.Dx(), bounds.Dy())
	}

	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			if mask.Pix[y*mask.Stride+x] == 0 {
				continue
			}
			base, _ := colorful.MakeColor(result.RGBAAt(x, y))
			r, g, b := base.BlendLab(tint, 0.6).Clamped().RGB255()
			result.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return result, nil
}

// parseHexColor parses "#RRGGBB" (the leading '#' is optional).
func parseHexColor(hex string) (colorful.Color, error) {
	if hex == "" {
		return colorful.Color{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return c, nil
}

package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestGuideOverlay(t *testing.T) {
	img := createInMemoryImage(50, 50, color.White)
	out, err := GuideOverlay(img, 20, DefaultGuideColor)
	if err != nil {
		t.Fatalf("GuideOverlay failed: %v", err)
	}

	want := color.RGBA{0x1F, 0x77, 0xB4, 0xFF}
	for _, y := range []int{20, 40} {
		if got := out.RGBAAt(10, y); got != want {
			t.Errorf("row %d: got %v, want %v", y, got, want)
		}
	}
	if got := out.RGBAAt(10, 10); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("between guides: got %v", got)
	}
	if got := out.RGBAAt(10, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("no guide expected on the first row, got %v", got)
	}
}

func TestGuideOverlay_Errors(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)
	if _, err := GuideOverlay(img, 0, DefaultGuideColor); err == nil {
		t.Error("expected error for zero spacing")
	}
	if _, err := GuideOverlay(img, 5, "#GG0000"); err == nil {
		t.Error("expected error for invalid color")
	}
}

func TestMaskOverlay(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)
	mask := image.NewGray(image.Rect(0, 0, 10, 10))
	mask.SetGray(3, 3, color.Gray{Y: 255})

	out, err := MaskOverlay(img, mask, DefaultMaskColor)
	if err != nil {
		t.Fatalf("MaskOverlay failed: %v", err)
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("unmasked pixel changed: %v", got)
	}
	tinted := out.RGBAAt(3, 3)
	if tinted == (color.RGBA{255, 255, 255, 255}) {
		t.Error("masked pixel should be tinted")
	}
	if tinted.R <= tinted.B {
		t.Errorf("tint should lean toward the mask color, got %v", tinted)
	}
}

func TestMaskOverlay_SizeMismatch(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)
	mask := image.NewGray(image.Rect(0, 0, 8, 10))
	if _, err := MaskOverlay(img, mask, DefaultMaskColor); err == nil {
		t.Error("expected error for mismatched mask")
	}
}

func TestParseHexColor(t *testing.T) {
	for _, s := range []string{"#FF8800", "FF8800", "#ff8800"} {
		c, err := parseHexColor(s)
		if err != nil {
			t.Fatalf("%q: %v", s, err)
		}
		r, g, b := c.RGB255()
		if r != 255 || g != 136 || b != 0 {
			t.Errorf("%q: got (%d,%d,%d)", s, r, g, b)
		}
	}
	if _, err := parseHexColor(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestEncodePNG(t *testing.T) {
	enc, err := EncodePNG(createPatternImage(12, 9))
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if enc.Width != 12 || enc.Height != 9 || enc.MimeType != "image/png" || enc.ImageBase64 == "" {
		t.Errorf("got %+v", enc)
	}
}

package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestRotate_Zero(t *testing.T) {
	img := createPatternImage(40, 30)
	out := Rotate(img, 0)
	if out.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Fatalf("bounds: got %v", out.Bounds())
	}
	for _, p := range []image.Point{{5, 5}, {30, 5}, {5, 25}, {30, 25}} {
		r1, g1, b1, _ := img.At(p.X, p.Y).RGBA()
		r2, g2, b2, _ := out.At(p.X, p.Y).RGBA()
		if diff(r1, r2) > 2 || diff(g1, g2) > 2 || diff(b1, b2) > 2 {
			t.Errorf("pixel %v changed", p)
		}
	}
}

func TestRotate_CounterClockwise(t *testing.T) {
	img := createInMemoryImage(40, 40, color.White).(*image.RGBA)
	// dark block in the top-right corner
	for y := 0; y < 10; y++ {
		for x := 30; x < 40; x++ {
			img.Set(x, y, color.Black)
		}
	}

	out := Rotate(img, 90)
	if r, _, _, _ := out.At(5, 5).RGBA(); r>>8 > 40 {
		t.Errorf("block should move to the top-left, got %d there", r>>8)
	}
	if r, _, _, _ := out.At(35, 5).RGBA(); r>>8 < 215 {
		t.Errorf("top-right should now be paper, got %d", r>>8)
	}
}

func TestRotate_ReplicatesBorder(t *testing.T) {
	img := createInMemoryImage(60, 40, color.White)
	out := Rotate(img, 30)
	for _, p := range []image.Point{{0, 0}, {59, 0}, {0, 39}, {59, 39}} {
		if r, g, b, _ := out.At(p.X, p.Y).RGBA(); r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
			t.Errorf("corner %v should be paper, got (%d,%d,%d)", p, r>>8, g>>8, b>>8)
		}
	}
}

func TestRotate_KeepsGrayscale(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 16, 12))
	if _, ok := Rotate(g, 3).(*image.Gray); !ok {
		t.Error("gray input should produce a gray result")
	}
	if _, ok := Rotate(createInMemoryImage(16, 12, color.White), 3).(*image.RGBA); !ok {
		t.Error("color input should produce an RGBA result")
	}
}

func TestRotate_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(100, 50, 130, 70))
	out := Rotate(img, 5)
	if out.Bounds() != image.Rect(0, 0, 30, 20) {
		t.Errorf("bounds: got %v", out.Bounds())
	}
}

func diff(a, b uint32) uint32 {
	a, b = a>>8, b>>8
	if a > b {
		return a - b
	}
	return b - a
}

package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func TestCrop(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := Crop(img, 0, 0, 50, 50, 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if result.Width != 50 || result.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}

	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	// Verify base64 can be decoded
	_, err = base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Errorf("failed to decode base64: %v", err)
	}
}

func TestCrop_WithScale(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	// Scale up 2x
	result, err := Crop(img, 0, 0, 50, 50, 2.0)
	if err != nil {
		t.Fatalf("Crop with scale failed: %v", err)
	}

	if result.Width != 100 || result.Height != 100 {
		t.Errorf("scaled dimensions: got %dx%d, want 100x100", result.Width, result.Height)
	}
}

func TestCrop_ScaleDown(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	// Scale down 0.5x
	result, err := Crop(img, 0, 0, 100, 100, 0.5)
	if err != nil {
		t.Fatalf("Crop with scale down failed: %v", err)
	}

	if result.Width != 50 || result.Height != 50 {
		t.Errorf("scaled dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}
}

func TestCrop_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 negative", -1, 0, 50, 50},
		{"y1 negative", 0, -1, 50, 50},
		{"x2 too large", 0, 0, 101, 50},
		{"y2 too large", 0, 0, 50, 101},
		{"all out of bounds", -1, -1, 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, 1.0)
			if err == nil {
				t.Error("Crop should fail for out-of-bounds coordinates")
			}
		})
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 >= x2", 50, 0, 50, 50},
		{"x1 > x2", 60, 0, 50, 50},
		{"y1 >= y2", 0, 50, 50, 50},
		{"y1 > y2", 0, 60, 50, 50},
		{"zero area", 50, 50, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, 1.0)
			if err == nil {
				t.Error("Crop should fail for invalid region")
			}
		})
	}
}

func TestCrop_FullImage(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	result, err := Crop(img, 0, 0, 100, 100, 1.0)
	if err != nil {
		t.Fatalf("Crop full image failed: %v", err)
	}

	if result.Width != 100 || result.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 100x100", result.Width, result.Height)
	}
}

func TestCrop_VerifyContent(t *testing.T) {
	img := createPatternImage(100, 100)

	// Crop top-left quadrant (should be red)
	result, err := Crop(img, 0, 0, 50, 50, 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	// Decode the result and verify color
	decoded, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}

	croppedImg, err := png.Decode(strings.NewReader(string(decoded)))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}

	// Sample center pixel - should be red
	r, g, b, _ := croppedImg.At(25, 25).RGBA()
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)

	if r8 != 255 || g8 != 0 || b8 != 0 {
		t.Errorf("cropped image color: got (%d,%d,%d), want (255,0,0)", r8, g8, b8)
	}
}

func TestContentBounds(t *testing.T) {
	img := createInMemoryImage(120, 80, color.White).(*image.RGBA)
	for y := 20; y < 50; y++ {
		for x := 30; x < 90; x++ {
			img.Set(x, y, color.Black)
		}
	}
	img.Set(100, 70, color.Gray{Y: 40})

	r, ok := ContentBounds(img)
	if !ok {
		t.Fatal("expected content")
	}
	want := image.Rect(30, 20, 101, 71)
	if r != want {
		t.Errorf("bounds: got %v, want %v", r, want)
	}
}

func TestContentBounds_OffsetOrigin(t *testing.T) {
	img := image.NewGray(image.Rect(10, 10, 60, 60))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(25, 30, color.Gray{})
	img.SetGray(40, 35, color.Gray{})

	r, ok := ContentBounds(img)
	if !ok {
		t.Fatal("expected content")
	}
	if want := image.Rect(25, 30, 41, 36); r != want {
		t.Errorf("bounds: got %v, want %v", r, want)
	}
}

func TestContentBounds_Blank(t *testing.T) {
	if _, ok := ContentBounds(createInMemoryImage(40, 40, color.White)); ok {
		t.Error("blank page should have no content")
	}
}

func TestCropToContent(t *testing.T) {
	img := createInMemoryImage(100, 100, color.White).(*image.RGBA)
	for y := 10; y < 30; y++ {
		for x := 60; x < 95; x++ {
			img.Set(x, y, color.Black)
		}
	}

	out, box, cropped := CropToContent(img)
	if !cropped {
		t.Fatal("expected the image to be cropped")
	}
	if box != image.Rect(60, 10, 95, 30) {
		t.Errorf("box: got %v", box)
	}
	if out.Bounds().Dx() != 35 || out.Bounds().Dy() != 20 {
		t.Errorf("size: got %v", out.Bounds())
	}
	r, g, b, _ := out.At(out.Bounds().Min.X, out.Bounds().Min.Y).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Error("crop should start on content")
	}
}

func TestCropToContent_Blank(t *testing.T) {
	img := createInMemoryImage(30, 20, color.White)
	out, box, cropped := CropToContent(img)
	if cropped {
		t.Error("blank page should not be cropped")
	}
	if out != img {
		t.Error("blank page should be returned unchanged")
	}
	if box != img.Bounds() {
		t.Errorf("box: got %v", box)
	}
}

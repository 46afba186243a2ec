package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is the Tesseract language used when none is given.
const DefaultLanguage = "eng"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

func boundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// offset shifts b by (dx, dy).
func (b Bounds) offset(dx, dy int) Bounds {
	return Bounds{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this text in the image.
	Bounds Bounds `json:"bounds"`
}

// Result contains the complete results of text extraction from an image.
type Result struct {
	// FullText is all recognized text with original spacing and newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with their bounding boxes and
	// confidence scores. May be empty if bounding box extraction fails (text
	// will still be in FullText).
	Regions []TextRegion `json:"regions"`
}

// TextRegionBox is a detected text block's location without its content.
type TextRegionBox struct {
	Bounds     Bounds  `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// DetectTextRegionsResult contains text block locations.
type DetectTextRegionsResult struct {
	Regions []TextRegionBox `json:"regions"`
	Count   int             `json:"count"`
}

// newClient prepares a Tesseract client holding img as a PNG.
//
// The caller must Close the returned client.
func newClient(img image.Image, language string) (*gosseract.Client, error) {
	if language == "" {
		language = DefaultLanguage
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	return client, nil
}

// ExtractText performs OCR on an entire image and returns the recognized text.
//
// The image is typically a page that has already been aligned (and possibly
// cleaned): Tesseract's layout analysis degrades quickly with skew.
//
// Parameters:
//   - img: The page to read.
//   - language: Tesseract language code (e.g., "eng"). The matching
//     traineddata must be installed. Empty means DefaultLanguage.
//
// # Word-Level Results
//
// Regions holds one entry per recognized word (Tesseract's RIL_WORD level)
// with its confidence and bounding box in img's coordinates. Empty words are
// dropped. If word-level box extraction fails the full text is still returned
// with an empty Regions slice.
func ExtractText(img image.Image, language string) (*Result, error) {
	client, err := newClient(img, language)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	origin := img.Bounds().Min
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &Result{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Bounds:     boundsOf(box.Box).offset(origin.X, origin.Y),
		})
	}

	return &Result{FullText: text, Regions: regions}, nil
}

// ExtractTextFromRegion performs OCR on the part of img inside r.
//
// The region is clipped to the image. Returned bounding boxes are expressed
// in the coordinates of the original image: a word found at (10, 20) inside a
// region starting at (100, 50) is reported at (110, 70).
func ExtractTextFromRegion(img image.Image, r image.Rectangle, language string) (*Result, error) {
	clipped := r.Intersect(img.Bounds())
	if clipped.Empty() {
		return nil, fmt.Errorf("OCR region %v does not overlap image bounds %v", r, img.Bounds())
	}

	cropped := imaging.Crop(img, clipped)
	result, err := ExtractText(cropped, language)
	if err != nil {
		return nil, err
	}

	for i := range result.Regions {
		result.Regions[i].Bounds = result.Regions[i].Bounds.offset(clipped.Min.X, clipped.Min.Y)
	}
	return result, nil
}

// DetectTextRegions finds text blocks without returning their content.
//
// It uses Tesseract's RIL_BLOCK level, which groups text into paragraph-like
// blocks. Blocks with confidence (0.0 to 1.0) below minConfidence are dropped.
func DetectTextRegions(img image.Image, minConfidence float64) (*DetectTextRegionsResult, error) {
	client, err := newClient(img, DefaultLanguage)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to get text regions: %w", err)
	}

	origin := img.Bounds().Min
	regions := make([]TextRegionBox, 0, len(boxes))
	for _, box := range boxes {
		confidence := box.Confidence / 100.0
		if confidence < minConfidence {
			continue
		}
		regions = append(regions, TextRegionBox{
			Bounds:     boundsOf(box.Box).offset(origin.X, origin.Y),
			Confidence: confidence,
		})
	}

	return &DetectTextRegionsResult{Regions: regions, Count: len(regions)}, nil
}

// Info describes the OCR subsystem.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Language  string `json:"language"`
	Error     string `json:"error,omitempty"`
}

var (
	probeMu    sync.Mutex
	probeCache = map[string]Info{}
)

// GetInfo reports whether Tesseract can read text in language. The probe runs
// once per language and is cached.
func GetInfo(language string) Info {
	if language == "" {
		language = DefaultLanguage
	}

	probeMu.Lock()
	defer probeMu.Unlock()
	if info, ok := probeCache[language]; ok {
		return info
	}

	info := Info{Language: language}
	blank := image.NewGray(image.Rect(0, 0, 8, 8))
	client, err := newClient(blank, language)
	if err == nil {
		info.Version = client.Version()
		_, err = client.Text()
		client.Close()
	}
	if err != nil {
		info.Error = err.Error()
	} else {
		info.Available = true
	}

	probeCache[language] = info
	return info
}

// Available reports whether OCR in language can be used.
func Available(language string) bool {
	return GetInfo(language).Available
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/scan-align/internal/cleanup"
	"github.com/ironsheep/scan-align/internal/imaging"
	"github.com/ironsheep/scan-align/internal/ocr"
	"github.com/ironsheep/scan-align/internal/skew"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "scan_align", "scan_crop").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/skew/cleanup/ocr function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "scan_info":
		return s.handleScanInfo(args)

	// Alignment
	case "scan_align":
		return s.handleScanAlign(ctx, args)
	case "scan_estimate_skew":
		return s.handleScanEstimateSkew(args)
	case "scan_foreground_mask":
		return s.handleScanForegroundMask(args)

	// Inspection
	case "scan_edge_detect":
		return s.handleScanEdgeDetect(args)
	case "scan_crop":
		return s.handleScanCrop(args)

	// Cleanup and OCR
	case "scan_cleanup":
		return s.handleScanCleanup(args)
	case "scan_ocr":
		return s.handleScanOCR(args)
	case "scan_text_regions":
		return s.handleScanTextRegions(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type pathArgs struct {
	Path string `json:"path"`
}

type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r regionArgs) rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// === Basic Image Information ===

type scanInfoResult struct {
	*imaging.ImageInfo
	OCR ocr.Info `json:"ocr"`
}

func (s *Server) handleScanInfo(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	info, err := imaging.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	return &scanInfoResult{ImageInfo: info, OCR: ocr.GetInfo(s.opts.OCRLanguage)}, nil
}

// === Alignment ===

type scanAlignArgs struct {
	Path string `json:"path"`
	// Output, when set, receives the corrected page.
	Output       string `json:"output"`
	IncludeImage bool   `json:"include_image"`
}

type scanAlignResult struct {
	Angles  skew.Angles           `json:"angles"`
	Rotated bool                  `json:"rotated"`
	Cropped bool                  `json:"cropped"`
	CropBox regionArgs            `json:"crop_box"`
	Width   int                   `json:"width"`
	Height  int                   `json:"height"`
	Output  string                `json:"output,omitempty"`
	Image   *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleScanAlign(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanAlignArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := s.aligner.Align(ctx, img)
	if err != nil {
		return nil, err
	}

	b := res.Image.Bounds()
	out := &scanAlignResult{
		Angles:  res.Angles,
		Rotated: res.Rotated,
		Cropped: res.Cropped,
		CropBox: regionArgs{X1: res.CropBox.Min.X, Y1: res.CropBox.Min.Y, X2: res.CropBox.Max.X, Y2: res.CropBox.Max.Y},
		Width:   b.Dx(),
		Height:  b.Dy(),
	}
	if a.Output != "" {
		if err := imaging.Save(res.Image, a.Output); err != nil {
			return nil, err
		}
		s.cache.Evict(a.Output)
		out.Output = a.Output
	}
	if a.IncludeImage {
		if out.Image, err = imaging.EncodePNG(res.Image); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Server) handleScanEstimateSkew(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	angles, _ := s.aligner.Estimate(img)
	return angles, nil
}

type scanForegroundMaskArgs struct {
	Path    string `json:"path"`
	Overlay bool   `json:"overlay"`
	Color   string `json:"color"`
}

type scanForegroundMaskResult struct {
	*imaging.EncodedImage
	ForegroundPixels int `json:"foreground_pixels"`
}

func (s *Server) handleScanForegroundMask(args json.RawMessage) (interface{}, error) {
	var a scanForegroundMaskArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		a.Color = imaging.DefaultMaskColor
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	m := skew.BuildMask(img, s.opts.Skew.Mask)
	var shown image.Image = m.Ink
	if a.Overlay {
		if shown, err = imaging.MaskOverlay(img, m.Ink, a.Color); err != nil {
			return nil, err
		}
	}
	enc, err := imaging.EncodePNG(shown)
	if err != nil {
		return nil, err
	}
	return &scanForegroundMaskResult{EncodedImage: enc, ForegroundPixels: imaging.CountNonZero(m.Ink)}, nil
}

// === Inspection ===

type scanEdgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
}

func (s *Server) handleScanEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a scanEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = s.opts.Skew.Hough.CannyLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = s.opts.Skew.Hough.CannyHigh
	}
	if a.ThresholdLow > a.ThresholdHigh {
		return nil, fmt.Errorf("threshold_low (%d) must not exceed threshold_high (%d)", a.ThresholdLow, a.ThresholdHigh)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh)
}

type scanCropArgs struct {
	Path string `json:"path"`
	regionArgs
	Scale float64 `json:"scale"`
}

func (s *Server) handleScanCrop(args json.RawMessage) (interface{}, error) {
	var a scanCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2, a.Scale)
}

// === Cleanup and OCR ===

type scanCleanupArgs struct {
	Path   string `json:"path"`
	Output string `json:"output"`
	// Options overrides individual cleanup settings.
	Options json.RawMessage `json:"options"`
}

type scanCleanupResult struct {
	Width  int                   `json:"width"`
	Height int                   `json:"height"`
	Output string                `json:"output,omitempty"`
	Image  *imaging.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleScanCleanup(args json.RawMessage) (interface{}, error) {
	var a scanCleanupArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := s.opts.Cleanup
	if len(a.Options) > 0 {
		if err := json.Unmarshal(a.Options, &opts); err != nil {
			return nil, fmt.Errorf("invalid cleanup options: %w", err)
		}
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	cleaned, err := cleanup.Clean(img, opts)
	if err != nil {
		return nil, err
	}
	res := &scanCleanupResult{Width: cleaned.Rect.Dx(), Height: cleaned.Rect.Dy()}
	if a.Output != "" {
		if err := imaging.Save(cleaned, a.Output); err != nil {
			return nil, err
		}
		s.cache.Evict(a.Output)
		res.Output = a.Output
		return res, nil
	}
	if res.Image, err = imaging.EncodePNG(cleaned); err != nil {
		return nil, err
	}
	return res, nil
}

type scanOCRArgs struct {
	Path     string      `json:"path"`
	Region   *regionArgs `json:"region,omitempty"`
	Language string      `json:"language"`
}

func (s *Server) handleScanOCR(args json.RawMessage) (interface{}, error) {
	var a scanOCRArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = s.opts.OCRLanguage
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if a.Region != nil {
		return ocr.ExtractTextFromRegion(img, a.Region.rect(), a.Language)
	}
	return ocr.ExtractText(img, a.Language)
}

type scanTextRegionsArgs struct {
	Path          string  `json:"path"`
	MinConfidence float64 `json:"min_confidence"`
}

func (s *Server) handleScanTextRegions(args json.RawMessage) (interface{}, error) {
	var a scanTextRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MinConfidence == 0 {
		a.MinConfidence = 0.5
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return ocr.DetectTextRegions(img, a.MinConfidence)
}

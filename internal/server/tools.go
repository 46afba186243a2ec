package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the scanned page",
	}
}

func regionProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "scan_info",
			Description: "Load a scanned page and return its dimensions, format, colour depth and whether OCR is available.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Alignment
		{
			Name: "scan_align",
			Description: "Estimate the skew of a scanned page with three independent methods (minimum-area rectangle, " +
				"principal axis, Hough lines), rotate it level by the median estimate and crop it to its content. " +
				"Returns every estimate, the fused angle and the crop box.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to save the corrected page; the extension selects the format",
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the corrected page as base64-encoded PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "scan_estimate_skew",
			Description: "Report the skew estimates of a page without modifying it. Angles are in degrees; positive means the page must turn counter-clockwise to be level.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "scan_foreground_mask",
			Description: "Return the binary ink mask used for skew estimation as base64-encoded PNG, optionally tinted over the page.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Tint ink pixels over the original page instead of returning the bare mask",
						"default":     false,
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Overlay colour in hex format. Default #E4572E",
					},
				},
				"required": []string{"path"},
			},
		},

		// Inspection
		{
			Name:        "scan_edge_detect",
			Description: "Run Canny edge detection and return the edge map as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Lower hysteresis threshold. Default 50",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "Upper hysteresis threshold. Default 150",
						"default":     150,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "scan_crop",
			Description: "Crop a rectangular region from a page and return it as base64-encoded PNG. Use this to zoom into areas that need detailed examination.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Cleanup and OCR
		{
			Name:        "scan_cleanup",
			Description: "Prepare a page for handwriting extraction: bilateral denoise, CLAHE contrast, adaptive binarization, opening and sharpening.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to save the cleaned page; when omitted the result is returned as base64 PNG",
					},
					"options": map[string]interface{}{
						"type":        "object",
						"description": "Overrides for individual stages, e.g. {\"denoise\": false, \"tiles\": 4}",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "scan_ocr",
			Description: "Extract text from a page, or from one region of it, using Tesseract. Returns the full text and word boxes with confidence.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"region": regionProperty("Optional region to read, in page coordinates"),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Default eng",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "scan_text_regions",
			Description: "Find blocks of text on a page without reading them. Returns bounding boxes and confidence.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum block confidence between 0 and 1. Default 0.5",
						"default":     0.5,
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

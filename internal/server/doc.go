// Package server implements the MCP (Model Context Protocol) server for scanned
// exam pages.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Page Information:
//   - scan_info: Dimensions, format and OCR availability
//
// Alignment:
//   - scan_align: Estimate skew, rotate level and crop to content
//   - scan_estimate_skew: Report the three estimates and their median
//   - scan_foreground_mask: The ink mask the estimators work on
//
// Inspection:
//   - scan_edge_detect: Canny edge map
//   - scan_crop: Extract (and optionally scale) a rectangular region
//
// Extraction Preparation:
//   - scan_cleanup: Denoise, contrast, binarize and sharpen
//   - scan_ocr: Tesseract text with word boxes
//   - scan_text_regions: Text block bounding boxes
//
// # Image Caching
//
// Pages are decoded once and cached by path for the lifetime of the server.
// Files written by scan_align and scan_cleanup are evicted so later calls see
// the new content.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A page with too little ink to estimate is not an error: scan_align returns it
// unrotated with rotated=false.
package server

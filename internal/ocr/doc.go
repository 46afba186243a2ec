// Package ocr extracts text from aligned scans using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). It works on
// in-memory images, so pages can be read straight out of the alignment and
// cleanup stages without touching disk.
//
// # Prerequisites
//
// gosseract links against libtesseract, so building this package needs cgo
// and the Tesseract development headers:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Language data files are required for each language used. Available reports
// whether a language can actually be loaded; callers should check it before
// offering OCR.
//
// # Functions
//
//   - ExtractText: Full-page OCR, returns all text with word bounding boxes
//   - ExtractTextFromRegion: OCR on a rectangular region, boxes in page coordinates
//   - DetectTextRegions: Find text blocks without returning their content
package ocr

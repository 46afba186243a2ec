// Package imaging provides the raster primitives used by the scan alignment
// pipeline.
//
// It covers decoding and saving scans, grayscale conversion, histogram
// equalization, Gaussian smoothing, adaptive and Otsu thresholding, square
// morphology, Canny edge detection, cubic rotation with replicated borders,
// content cropping, and debug overlays. All operations work with standard Go
// image.Image types and use a coordinate system where (0,0) is at the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Grayscale Buffers
//
// Functions that take *image.Gray expect the buffer to start at (0,0) and
// always return fresh buffers that do. ToGray produces such a buffer from any
// image and is the usual entry point.
//
// # Angles
//
// Rotate follows the page-viewing convention: a positive angle turns the
// content counter-clockwise on screen.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Every other function is
// stateless, never mutates its inputs, and can be called concurrently.
//
// # Error Handling
//
// Decode, Open and ImageCache.Load wrap every read or parse failure in
// ErrDecode. The remaining functions only fail on invalid arguments (bad
// colours, crop regions outside the image) or PNG encoding errors.
package imaging

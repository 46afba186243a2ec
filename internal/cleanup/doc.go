// Package cleanup prepares an aligned scan for text extraction.
//
// Clean runs the stages a scanned answer sheet goes through before it is read:
//
//  1. Bilateral denoise: smooths paper grain while keeping pen strokes sharp
//  2. CLAHE: contrast-limited adaptive histogram equalization per tile
//  3. Adaptive threshold: local-mean binarization, robust to shadows
//  4. Opening with a 2x2 element: removes single-pixel specks
//  5. Sharpen: a mild 3x3 kernel that keeps text crisp without thickening it
//
// Every stage can be switched off through Options. The output always has the
// dimensions of the input.
package cleanup

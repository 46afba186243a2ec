// Package skew estimates and removes the rotational skew of scanned pages.
//
// Three independent estimators look at the same page:
//
//   - MinAreaAngle fits the minimum-area rotated rectangle around the ink
//   - PrincipalAxisAngle takes the direction of greatest variance of the ink
//   - HoughAngle takes the median angle of near-horizontal line segments
//
// Any of them may report no angle when the page carries too little signal.
// Fuse normalizes the present estimates into (-90, 90] and takes their
// median. The Aligner then rotates the page by the fused angle (skipped when
// it is negligible or when nothing was estimated) and crops the result to its
// content.
//
// # Angle Convention
//
// All angles are in degrees and express the counter-clockwise rotation, as
// the page is viewed, that levels the content. A text baseline that runs down
// to the right at 3 degrees produces an estimate of +3.
//
// # Failure Model
//
// Lack of signal is never an error: the page is returned unrotated and a
// warning is logged. The only error of AlignFile is a page that cannot be
// decoded (imaging.ErrDecode); Align additionally honours context
// cancellation between stages without returning partial results.
package skew

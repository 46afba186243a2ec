package skew

import (
	"image"

	"github.com/ironsheep/scan-align/internal/imaging"
)

// MaskParams tunes the foreground mask builder.
type MaskParams struct {
	// BlurKernel is the side of the Gaussian smoothing kernel.
	BlurKernel int `yaml:"blur_kernel" json:"blur_kernel"`
	// BlockSize is the adaptive threshold window. Must be odd.
	BlockSize int `yaml:"block_size" json:"block_size"`
	// Offset is subtracted from the local mean before comparison.
	Offset float64 `yaml:"offset" json:"offset"`
	// OpenSize is the side of the square opening element; 0 or 1 disables it.
	OpenSize int `yaml:"open_size" json:"open_size"`
}

// DefaultMaskParams returns the parameters tuned for printed exam sheets.
func DefaultMaskParams() MaskParams {
	return MaskParams{
		BlurKernel: 5,
		BlockSize:  31,
		Offset:     15,
		OpenSize:   3,
	}
}

// Mask is the input shared by the three estimators.
type Mask struct {
	// Gray is the histogram-equalized grayscale page, used for line detection.
	Gray *image.Gray
	// Ink is 255 on foreground (ink) pixels and 0 elsewhere. Same size as Gray.
	Ink *image.Gray
}

// BuildMask isolates ink pixels of a color or grayscale page.
//
// The page is converted to grayscale and equalized, smoothed, binarized
// against a local mean (robust to uneven lighting), inverted so ink is on, and
// opened to drop isolated specks.
func BuildMask(img image.Image, p MaskParams) *Mask {
	eq := imaging.EqualizeHist(imaging.ToGray(img))
	blurred := imaging.GaussianBlur(eq, imaging.KernelSigma(p.BlurKernel))
	ink := imaging.Invert(imaging.AdaptiveThreshold(blurred, p.BlockSize, p.Offset))
	if p.OpenSize > 1 {
		ink = imaging.MorphOpen(ink, p.OpenSize)
	}
	return &Mask{Gray: eq, Ink: ink}
}

package cleanup

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/convolution"

	"github.com/ironsheep/scan-align/internal/imaging"
)

// Options selects and tunes the cleanup stages.
type Options struct {
	Denoise    bool    `yaml:"denoise" json:"denoise"`
	Diameter   int     `yaml:"diameter" json:"diameter"`
	SigmaColor float64 `yaml:"sigma_color" json:"sigma_color"`
	SigmaSpace float64 `yaml:"sigma_space" json:"sigma_space"`

	Contrast  bool    `yaml:"contrast" json:"contrast"`
	ClipLimit float64 `yaml:"clip_limit" json:"clip_limit"`
	Tiles     int     `yaml:"tiles" json:"tiles"`

	Binarize  bool    `yaml:"binarize" json:"binarize"`
	BlockSize int     `yaml:"block_size" json:"block_size"`
	Offset    float64 `yaml:"offset" json:"offset"`

	// OpenSize is the side of the opening element; 0 or 1 disables it.
	OpenSize int  `yaml:"open_size" json:"open_size"`
	Sharpen  bool `yaml:"sharpen" json:"sharpen"`
}

// DefaultOptions returns the settings tuned for handwriting on exam sheets.
func DefaultOptions() Options {
	return Options{
		Denoise:    true,
		Diameter:   7,
		SigmaColor: 50,
		SigmaSpace: 50,
		Contrast:   true,
		ClipLimit:  2.0,
		Tiles:      8,
		Binarize:   true,
		BlockSize:  17,
		Offset:     7,
		OpenSize:   2,
		Sharpen:    true,
	}
}

// Validate reports the first invalid setting of an enabled stage.
func (o Options) Validate() error {
	if o.Denoise && o.Diameter < 1 {
		return fmt.Errorf("denoise diameter must be at least 1, got %d", o.Diameter)
	}
	if o.Denoise && (o.SigmaColor <= 0 || o.SigmaSpace <= 0) {
		return fmt.Errorf("denoise sigmas must be positive")
	}
	if o.Contrast && (o.ClipLimit <= 0 || o.Tiles < 1) {
		return fmt.Errorf("contrast needs a positive clip limit and at least one tile")
	}
	if o.Binarize && (o.BlockSize < 3 || o.BlockSize%2 == 0) {
		return fmt.Errorf("threshold block size must be odd and at least 3, got %d", o.BlockSize)
	}
	if o.OpenSize < 0 {
		return fmt.Errorf("open size must not be negative, got %d", o.OpenSize)
	}
	return nil
}

// sharpenKernel adds three times the pixel and subtracts half of each
// 4-neighbour; its weights sum to 1 so flat regions are unchanged.
var sharpenKernel = [3][3]float64{
	{0, -0.5, 0},
	{-0.5, 3, -0.5},
	{0, -0.5, 0},
}

// Clean runs the enabled stages on img and returns the grayscale result.
func Clean(img image.Image, opts Options) (*image.Gray, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	g := imaging.ToGray(img)
	if opts.Denoise {
		g = Bilateral(g, opts.Diameter, opts.SigmaColor, opts.SigmaSpace)
	}
	if opts.Contrast {
		g = CLAHE(g, opts.ClipLimit, opts.Tiles)
	}
	if opts.Binarize {
		g = imaging.AdaptiveThreshold(g, opts.BlockSize, opts.Offset)
	}
	if opts.OpenSize > 1 {
		g = imaging.MorphOpen(g, opts.OpenSize)
	}
	if opts.Sharpen {
		g = Sharpen(g)
	}
	return g, nil
}

// CleanFile cleans the image at in and writes the result to out.
func CleanFile(in, out string, opts Options) error {
	img, err := imaging.Open(in)
	if err != nil {
		return err
	}
	cleaned, err := Clean(img, opts)
	if err != nil {
		return err
	}
	return imaging.Save(cleaned, out)
}

// Sharpen applies the mild 3x3 sharpening kernel. Edge pixels are extended
// past the border and results are clamped to 0-255.
func Sharpen(g *image.Gray) *image.Gray {
	k := convolution.NewKernel(3, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			k.Matrix[y*3+x] = sharpenKernel[y][x]
		}
	}
	rgba := convolution.Convolve(g, k, &convolution.Options{Bias: 0, Wrap: false, KeepAlpha: true})

	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			dst[x] = src[x*4]
		}
	}
	return out
}

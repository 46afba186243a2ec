package skew

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ironsheep/scan-align/internal/imaging"
)

// DefaultMinRotation is the fused angle, in degrees, below which the page is
// left unrotated to avoid interpolation blur for negligible skew.
const DefaultMinRotation = 0.15

// Options configures an Aligner.
type Options struct {
	// MinRotation is the smallest |fused angle| that triggers a rotation.
	MinRotation float64
	Mask        MaskParams
	Hough       HoughParams
	// Debug keeps the intermediate images on the Result and, when OutputDir
	// is set, writes them to a per-run subdirectory.
	Debug     bool
	OutputDir string
	// Logger receives progress and diagnostics; nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the production settings with logging disabled.
func DefaultOptions() Options {
	return Options{
		MinRotation: DefaultMinRotation,
		Mask:        DefaultMaskParams(),
		Hough:       DefaultHoughParams(),
	}
}

// Angles reports every estimate and how they were fused.
type Angles struct {
	MinArea       Estimate `json:"min_area"`
	PrincipalAxis Estimate `json:"principal_axis"`
	Hough         Estimate `json:"hough"`
	// Fused is the median of the present estimates, or 0 when Available is 0.
	Fused float64 `json:"fused_degrees"`
	// Available counts the estimates that took part in the fusion.
	Available int `json:"available"`
}

// All returns the three estimates in estimator order.
func (a Angles) All() []Estimate {
	return []Estimate{a.MinArea, a.PrincipalAxis, a.Hough}
}

// Diagnostics holds intermediate images kept in debug mode.
type Diagnostics struct {
	Input   image.Image
	Mask    *image.Gray
	Rotated image.Image
	Cropped image.Image
	// Dir is where the images were written, empty when not written.
	Dir string
}

// Result is the outcome of one alignment.
type Result struct {
	Angles Angles `json:"angles"`
	// Rotated is false when rotation was skipped (no estimate or negligible angle).
	Rotated bool `json:"rotated"`
	// Cropped is false when no content was found after rotation.
	Cropped bool `json:"cropped"`
	// CropBox is the content rectangle in the rotated image's coordinates.
	CropBox image.Rectangle `json:"crop_box"`
	// Image is the corrected page: the input, the rotated page, or the
	// rotated page cropped to content.
	Image image.Image `json:"-"`
	// Diagnostics is set only in debug mode.
	Diagnostics *Diagnostics `json:"-"`
}

// Aligner estimates and removes page skew. An Aligner holds no mutable state
// and is safe for concurrent use.
type Aligner struct {
	opts Options
	log  *slog.Logger
}

// New returns an Aligner using opts.
func New(opts Options) *Aligner {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Aligner{opts: opts, log: log}
}

// Options returns the configuration the Aligner was built with.
func (a *Aligner) Options() Options { return a.opts }

// Estimate runs the three estimators on img and fuses their results.
func (a *Aligner) Estimate(img image.Image) (Angles, *Mask) {
	m := BuildMask(img, a.opts.Mask)

	angles := Angles{
		MinArea:       MinAreaAngle(m.Ink),
		PrincipalAxis: PrincipalAxisAngle(m.Ink),
		Hough:         HoughAngle(m.Gray, a.opts.Hough),
	}
	for _, e := range []*Estimate{&angles.MinArea, &angles.PrincipalAxis, &angles.Hough} {
		if e.OK {
			e.Angle = NormalizeAngle(e.Angle)
		}
	}
	angles.Fused, angles.Available = Fuse(angles.All()...)
	return angles, m
}

// Align levels img and crops it to its content.
//
// The call is all-or-nothing: on cancellation it returns ctx.Err() and no
// result. It never fails for lack of signal; it then returns the page
// unrotated.
func (a *Aligner) Align(ctx context.Context, img image.Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	angles, mask := a.Estimate(img)
	a.log.Debug("skew estimates",
		"min_area", angles.MinArea.String(),
		"principal_axis", angles.PrincipalAxis.String(),
		"hough", angles.Hough.String(),
		"fused", fmt.Sprintf("%.3f", angles.Fused),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Angles: angles}
	rotated := img
	switch {
	case angles.Available == 0:
		a.log.Warn("could not estimate skew angle; leaving page unrotated")
	case math.Abs(angles.Fused) < a.opts.MinRotation:
		a.log.Debug("negligible skew; rotation skipped", "angle", angles.Fused)
	default:
		rotated = imaging.Rotate(img, angles.Fused)
		res.Rotated = true
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, box, cropped := imaging.CropToContent(rotated)
	res.Image = out
	res.CropBox = box
	res.Cropped = cropped

	if a.opts.Debug {
		res.Diagnostics = &Diagnostics{Input: img, Mask: mask.Ink, Rotated: rotated, Cropped: out}
	}
	return res, nil
}

// AlignFile decodes the page at in, aligns it and saves the result to out.
//
// A page that cannot be decoded fails with an error wrapping imaging.ErrDecode
// and nothing is written. In debug mode with an output directory the mask,
// rotated and cropped images are written there as well.
func (a *Aligner) AlignFile(ctx context.Context, in, out string) (*Result, error) {
	img, err := imaging.Open(in)
	if err != nil {
		return nil, err
	}

	res, err := a.Align(ctx, img)
	if err != nil {
		return nil, err
	}

	if err := imaging.Save(res.Image, out); err != nil {
		return nil, err
	}

	if res.Diagnostics != nil && a.opts.OutputDir != "" {
		dir, err := a.writeDiagnostics(in, res.Diagnostics)
		if err != nil {
			// Debug artefacts are best-effort.
			a.log.Warn("failed to write debug images", "input", in, "error", err)
		} else {
			res.Diagnostics.Dir = dir
		}
	}

	a.log.Info("aligned",
		"input", in,
		"output", out,
		"angle", fmt.Sprintf("%.3f", res.Angles.Fused),
		"estimates", res.Angles.Available,
		"rotated", res.Rotated,
		"cropped", res.Cropped,
	)
	return res, nil
}

func (a *Aligner) writeDiagnostics(in string, d *Diagnostics) (string, error) {
	base := filepath.Base(in)
	base = base[:len(base)-len(filepath.Ext(base))]
	dir := filepath.Join(a.opts.OutputDir, base+"-"+uuid.NewString()[:8])

	overlay, err := imaging.MaskOverlay(d.Input, d.Mask, imaging.DefaultMaskColor)
	if err != nil {
		return "", err
	}
	guides, err := imaging.GuideOverlay(d.Cropped, 40, imaging.DefaultGuideColor)
	if err != nil {
		return "", err
	}

	files := map[string]image.Image{
		"mask.png":    d.Mask,
		"rotated.png": d.Rotated,
		"cropped.png": d.Cropped,
		"guides.png":  guides,
		"overlay.png": overlay,
	}
	for name, img := range files {
		if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
			return "", err
		}
	}
	return dir, nil
}

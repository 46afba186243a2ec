// Package batch aligns every page image found in a directory.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/scan-align/internal/cleanup"
	"github.com/ironsheep/scan-align/internal/imaging"
	"github.com/ironsheep/scan-align/internal/skew"
)

// Options configures a batch run.
type Options struct {
	// Concurrency bounds the number of pages processed at once. Values below
	// 1 mean one.
	Concurrency int
	// Clean runs the cleanup stages on each aligned page, writing a
	// "<name>.<ext>-clean.png" file next to the aligned one.
	Clean   bool
	Cleanup cleanup.Options
	Logger  *slog.Logger
}

// Item is the outcome for a single input file.
type Item struct {
	Input     string  `json:"input"`
	Output    string  `json:"output,omitempty"`
	Cleaned   string  `json:"cleaned,omitempty"`
	Angle     float64 `json:"angle"`
	Estimates int     `json:"estimates"`
	Rotated   bool    `json:"rotated"`
	Err       error   `json:"-"`
	Error     string  `json:"error,omitempty"`
}

// Report summarises a batch run. Items follow the sorted order of the inputs.
type Report struct {
	Items    []Item        `json:"items"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Succeeded returns the number of files aligned without error.
func (r *Report) Succeeded() int { return len(r.Items) - r.Failed }

// Inputs lists the supported image files directly inside dir, sorted by name.
func Inputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if imaging.IsSupported(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// OutputPath maps an input file to its aligned output inside outDir. The
// extension is kept so the output uses the input's format.
func OutputPath(in, outDir string) string {
	return filepath.Join(outDir, filepath.Base(in))
}

// CleanPath returns the output path of the cleanup pass for an aligned page.
// The source extension stays in the name so page.png and page.jpg do not
// share a cleaned file.
func CleanPath(out string) string {
	return out + "-clean.png"
}

// ErrSameDir is returned when the output directory is the input directory.
var ErrSameDir = errors.New("output directory must differ from input directory")

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(infoA, infoB)
}

// Run aligns every supported image in inDir and writes the results to outDir.
//
// Failures on individual files are recorded in the report and do not stop the
// run. Run returns an error only when the input directory cannot be listed or
// ctx is cancelled; the partial report is returned in the latter case.
func Run(ctx context.Context, aligner *skew.Aligner, inDir, outDir string, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Clean {
		if err := opts.Cleanup.Validate(); err != nil {
			return nil, fmt.Errorf("invalid cleanup options: %w", err)
		}
	}

	if sameDir(inDir, outDir) {
		return nil, ErrSameDir
	}

	inputs, err := Inputs(inDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	start := time.Now()
	report := &Report{Items: make([]Item, len(inputs))}
	log.Info("batch started", "input_dir", inDir, "output_dir", outDir, "files", len(inputs))

	g := new(errgroup.Group)
	g.SetLimit(max(1, opts.Concurrency))

	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report.Items[i] = processOne(ctx, aligner, in, outDir, opts, log)
			return nil
		})
	}
	_ = g.Wait()

	for i := range report.Items {
		item := &report.Items[i]
		if item.Input == "" {
			// Never started because the run was cancelled
			item.Input = inputs[i]
			item.Err = ctx.Err()
		}
		if item.Err != nil {
			item.Error = item.Err.Error()
			report.Failed++
		}
	}
	report.Duration = time.Since(start)

	log.Info("batch finished",
		"succeeded", report.Succeeded(),
		"failed", report.Failed,
		"duration", report.Duration.Round(time.Millisecond),
	)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func processOne(ctx context.Context, aligner *skew.Aligner, in, outDir string, opts Options, log *slog.Logger) Item {
	item := Item{Input: in}
	out := OutputPath(in, outDir)

	res, err := aligner.AlignFile(ctx, in, out)
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) {
			log.Warn("skipping unreadable page", "input", in, "error", err)
		} else {
			log.Error("alignment failed", "input", in, "error", err)
		}
		item.Err = err
		return item
	}
	item.Output = out
	item.Angle = res.Angles.Fused
	item.Estimates = res.Angles.Available
	item.Rotated = res.Rotated

	if opts.Clean {
		cleaned, err := cleanup.Clean(res.Image, opts.Cleanup)
		if err == nil {
			item.Cleaned = CleanPath(out)
			err = imaging.Save(cleaned, item.Cleaned)
		}
		if err != nil {
			log.Error("cleanup failed", "input", in, "error", err)
			item.Cleaned = ""
			item.Err = fmt.Errorf("cleanup: %w", err)
		}
	}
	return item
}

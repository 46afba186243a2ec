package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ironsheep/scan-align/internal/batch"
	"github.com/ironsheep/scan-align/internal/cleanup"
	"github.com/ironsheep/scan-align/internal/imaging"
	"github.com/ironsheep/scan-align/internal/skew"
)

// DefaultTimeout bounds the processing of a single page.
const DefaultTimeout = 5 * time.Minute

// JobResult is written to the task's result once a page is aligned.
type JobResult struct {
	JobID     string      `json:"job_id"`
	Output    string      `json:"output"`
	Cleaned   string      `json:"cleaned,omitempty"`
	Angles    skew.Angles `json:"angles"`
	Rotated   bool        `json:"rotated"`
	Cropped   bool        `json:"cropped"`
	ElapsedMS int64       `json:"elapsed_ms"`
}

// Handler aligns the page named by a TypeAlign task. It implements
// asynq.Handler.
type Handler struct {
	Aligner *skew.Aligner
	Cleanup cleanup.Options
	// Timeout bounds each job; zero means DefaultTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h.Logger
}

// ProcessTask runs one alignment job.
//
// Malformed payloads and pages that cannot be decoded are wrapped with
// asynq.SkipRetry: running them again cannot succeed.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	log := h.logger()

	p, err := parsePayload(t)
	if err != nil {
		log.Error("rejecting task", "type", t.Type(), "error", err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	log = log.With("job_id", p.JobID)

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := h.Aligner.AlignFile(ctx, p.Input, p.Output)
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) {
			log.Warn("unreadable page; not retrying", "input", p.Input, "error", err)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("align %s: %w", p.Input, err)
	}

	result := JobResult{
		JobID:   p.JobID,
		Output:  p.Output,
		Angles:  res.Angles,
		Rotated: res.Rotated,
		Cropped: res.Cropped,
	}

	if p.Cleanup {
		cleaned, err := cleanup.Clean(res.Image, h.Cleanup)
		if err != nil {
			return fmt.Errorf("cleanup %s: %w: %w", p.Input, err, asynq.SkipRetry)
		}
		result.Cleaned = batch.CleanPath(p.Output)
		if err := imaging.Save(cleaned, result.Cleaned); err != nil {
			return fmt.Errorf("cleanup %s: %w", p.Input, err)
		}
	}

	result.ElapsedMS = time.Since(start).Milliseconds()
	if w := t.ResultWriter(); w != nil {
		writeResult(w, result, log)
	}

	log.Info("job completed",
		"output", p.Output,
		"angle", fmt.Sprintf("%.3f", res.Angles.Fused),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// writeResult stores the JSON form of result. Failures are logged only; the
// page itself has already been written.
func writeResult(w io.Writer, result JobResult, log *slog.Logger) {
	data, err := json.Marshal(result)
	if err != nil {
		log.Warn("failed to encode job result", "job_id", result.JobID, "error", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		log.Warn("failed to store job result", "job_id", result.JobID, "error", err)
	}
}

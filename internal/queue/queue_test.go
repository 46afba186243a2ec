package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ironsheep/scan-align/internal/cleanup"
	"github.com/ironsheep/scan-align/internal/imaging"
	"github.com/ironsheep/scan-align/internal/skew"
)

func writePage(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 150))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(30, 50, 170, 62), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(30, 80, 170, 92), image.NewUniform(color.Black), image.Point{}, draw.Src)
	if err := imaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
}

func newHandler() *Handler {
	return &Handler{Aligner: skew.New(skew.DefaultOptions()), Cleanup: cleanup.DefaultOptions()}
}

func TestNewAlignTask(t *testing.T) {
	task, err := NewAlignTask(AlignPayload{Input: "in.png", Output: "out.png", Cleanup: true})
	if err != nil {
		t.Fatalf("NewAlignTask failed: %v", err)
	}
	if task.Type() != TypeAlign {
		t.Errorf("type: got %q, want %q", task.Type(), TypeAlign)
	}
	var p AlignPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Input != "in.png" || p.Output != "out.png" || !p.Cleanup {
		t.Errorf("payload: got %+v", p)
	}
	if p.JobID == "" {
		t.Error("expected a generated job ID")
	}

	task, _ = NewAlignTask(AlignPayload{Input: "a", Output: "b", JobID: "exam-42"})
	if !strings.Contains(string(task.Payload()), `"job_id":"exam-42"`) {
		t.Errorf("job ID not kept: %s", task.Payload())
	}
}

func TestNewAlignTask_Invalid(t *testing.T) {
	if _, err := NewAlignTask(AlignPayload{Output: "out.png"}); err == nil {
		t.Error("expected error without input")
	}
	if _, err := NewAlignTask(AlignPayload{Input: "in.png"}); err == nil {
		t.Error("expected error without output")
	}
}

func TestProcessTask_MalformedPayload(t *testing.T) {
	tests := map[string]string{
		"not json":      "{",
		"missing input": `{"output":"x.png"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			err := newHandler().ProcessTask(context.Background(), asynq.NewTask(TypeAlign, []byte(body)))
			if !errors.Is(err, asynq.SkipRetry) {
				t.Errorf("err: got %v, want SkipRetry", err)
			}
		})
	}
}

func TestProcessTask_UndecodablePage(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(in, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	task, _ := NewAlignTask(AlignPayload{Input: in, Output: filepath.Join(dir, "out.png")})

	err := newHandler().ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, imaging.ErrDecode) {
		t.Errorf("err: got %v, want SkipRetry wrapping ErrDecode", err)
	}
}

func TestProcessTask_Aligns(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.png")
	writePage(t, in)
	out := filepath.Join(dir, "out", "page.png")

	var logs bytes.Buffer
	h := newHandler()
	h.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	task, _ := NewAlignTask(AlignPayload{Input: in, Output: out, Cleanup: true, JobID: "job-1"})
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}
	for _, path := range []string{out, filepath.Join(dir, "out", "page.png-clean.png")} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s: %v", path, err)
		}
	}
	if !strings.Contains(logs.String(), "job_id=job-1") {
		t.Errorf("expected job ID in logs: %s", logs.String())
	}
}

func TestProcessTask_Cancelled(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "page.png")
	writePage(t, in)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	task, _ := NewAlignTask(AlignPayload{Input: in, Output: filepath.Join(dir, "out.png")})
	err := newHandler().ProcessTask(ctx, task)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err: got %v, want context.Canceled", err)
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Error("cancelled jobs should stay retryable")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("redis unavailable") }

func TestWriteResult(t *testing.T) {
	tests := []struct {
		name    string
		result  JobResult
		w       *bytes.Buffer
		wantLog string
	}{
		{"stored", JobResult{JobID: "j1", Output: "out.png"}, &bytes.Buffer{}, ""},
		{"unencodable", JobResult{JobID: "j2", Angles: skew.Angles{Fused: math.NaN()}}, &bytes.Buffer{}, "failed to encode job result"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			writeResult(tt.w, tt.result, slog.New(slog.NewTextHandler(&logs, nil)))
			if tt.wantLog == "" {
				var got JobResult
				if err := json.Unmarshal(tt.w.Bytes(), &got); err != nil || got.JobID != tt.result.JobID {
					t.Errorf("stored result: %q (%v)", tt.w.String(), err)
				}
				if logs.Len() != 0 {
					t.Errorf("unexpected log: %s", logs.String())
				}
				return
			}
			if tt.w.Len() != 0 {
				t.Errorf("nothing should be stored, got %q", tt.w.String())
			}
			if !strings.Contains(logs.String(), tt.wantLog) || !strings.Contains(logs.String(), "job_id="+tt.result.JobID) {
				t.Errorf("log: got %q, want %q", logs.String(), tt.wantLog)
			}
		})
	}
}

func TestWriteResult_StoreFailure(t *testing.T) {
	var logs bytes.Buffer
	writeResult(failingWriter{}, JobResult{JobID: "j3"}, slog.New(slog.NewTextHandler(&logs, nil)))
	if !strings.Contains(logs.String(), "failed to store job result") {
		t.Errorf("log: got %q", logs.String())
	}
}

func TestNewConsumer_Validation(t *testing.T) {
	h := newHandler()
	tests := []struct {
		name string
		cfg  ConsumerConfig
	}{
		{"no redis", ConsumerConfig{QueueName: "q", Handler: h}},
		{"no queue", ConsumerConfig{RedisURL: "redis://localhost:6379", Handler: h}},
		{"no handler", ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "q"}},
		{"no aligner", ConsumerConfig{RedisURL: "redis://localhost:6379", QueueName: "q", Handler: &Handler{}}},
		{"bad url", ConsumerConfig{RedisURL: "http://localhost", QueueName: "q", Handler: h}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewConsumer(&tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewEnqueuer_Validation(t *testing.T) {
	if _, err := NewEnqueuer("redis://localhost:6379", ""); err == nil {
		t.Error("expected error without queue name")
	}
	if _, err := NewEnqueuer("localhost", "q"); err == nil {
		t.Error("expected error for URL without scheme")
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{4, time.Minute},
		{70, time.Minute},
	}
	for _, tt := range tests {
		if got := retryDelay(tt.n, nil, nil); got != tt.want {
			t.Errorf("retryDelay(%d): got %v, want %v", tt.n, got, tt.want)
		}
	}
}

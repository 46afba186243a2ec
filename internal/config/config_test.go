package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default configuration should be valid: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MinRotation != 0.15 || cfg.Hough.Threshold != 100 || cfg.Mask.BlockSize != 31 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "scan-align.yaml", `
debug: true
output_dir: /tmp/scan-debug
log_level: debug
min_rotation: 0.5
hough:
  threshold: 80
  max_line_gap: 10
cleanup:
  sharpen: false
batch_concurrency: 8
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Debug || cfg.OutputDir != "/tmp/scan-debug" || cfg.LogLevel != "debug" {
		t.Errorf("top-level fields not applied: %+v", cfg)
	}
	if cfg.MinRotation != 0.5 || cfg.BatchConcurrency != 8 {
		t.Errorf("numeric fields not applied: %+v", cfg)
	}
	if cfg.Hough.Threshold != 80 || cfg.Hough.MaxLineGap != 10 {
		t.Errorf("hough: got %+v", cfg.Hough)
	}
	// Unset nested fields keep their defaults
	if cfg.Hough.MinLineLength != 100 || cfg.Hough.CannyHigh != 150 {
		t.Errorf("hough defaults lost: %+v", cfg.Hough)
	}
	if cfg.Cleanup.Sharpen || !cfg.Cleanup.Denoise {
		t.Errorf("cleanup: got %+v", cfg.Cleanup)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "bad.yaml", "hough: [1, 2")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := Load(writeFile(t, "invalid.yaml", "batch_concurrency: 0\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"SCAN_ALIGN_DEBUG":              "true",
		"SCAN_ALIGN_MIN_ROTATION":       "1.25",
		"SCAN_ALIGN_HOUGH_THRESHOLD":    "60",
		"SCAN_ALIGN_REDIS_URL":          "redis://cache:6379/2",
		"SCAN_ALIGN_WORKER_CONCURRENCY": "12",
		"SCAN_ALIGN_OCR_LANGUAGE":       "",
	}))
	if err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if !cfg.Debug || cfg.MinRotation != 1.25 || cfg.Hough.Threshold != 60 {
		t.Errorf("got %+v", cfg)
	}
	if cfg.RedisURL != "redis://cache:6379/2" || cfg.WorkerConcurrency != 12 {
		t.Errorf("queue settings: got %q/%d", cfg.RedisURL, cfg.WorkerConcurrency)
	}
	if cfg.OCRLanguage != "eng" {
		t.Errorf("empty variable should not override, got %q", cfg.OCRLanguage)
	}
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"SCAN_ALIGN_DEBUG":             "sometimes",
		"SCAN_ALIGN_BATCH_CONCURRENCY": "many",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, name := range []string{"SCAN_ALIGN_DEBUG", "SCAN_ALIGN_BATCH_CONCURRENCY"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	t.Setenv("SCAN_ALIGN_LOG_LEVEL", "warn")
	cfg, err := Load(writeFile(t, "c.yaml", "log_level: debug\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("got %q, want warn", cfg.LogLevel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "SCAN_ALIGN_QUEUE_NAME"
	t.Setenv(key, "")
	os.Unsetenv(key)

	path := writeFile(t, ".env", key+"=exams\n")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.QueueName != "exams" {
		t.Errorf("queue name: got %q, want exams", cfg.QueueName)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"negative rotation", func(c *Config) { c.MinRotation = -1 }},
		{"even mask block", func(c *Config) { c.Mask.BlockSize = 30 }},
		{"canny order", func(c *Config) { c.Hough.CannyLow = 200 }},
		{"max angle", func(c *Config) { c.Hough.MaxAngle = 120 }},
		{"cleanup", func(c *Config) { c.Cleanup.Tiles = 0 }},
		{"debug without dir", func(c *Config) { c.Debug = true; c.OutputDir = "" }},
		{"worker concurrency", func(c *Config) { c.WorkerConcurrency = 0 }},
		{"queue name", func(c *Config) { c.QueueName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q): got %v, %v", in, got, err)
		}
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogLevel = "warn"
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestSkewOptions(t *testing.T) {
	cfg := Default()
	cfg.MinRotation = 0.3
	cfg.Debug = true
	opts := cfg.SkewOptions(nil)
	if opts.MinRotation != 0.3 || !opts.Debug || opts.OutputDir != cfg.OutputDir {
		t.Errorf("got %+v", opts)
	}
	if opts.Hough != cfg.Hough || opts.Mask != cfg.Mask {
		t.Error("estimator parameters not carried over")
	}
}

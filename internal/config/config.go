// Package config holds the settings shared by every scan-align command.
//
// Settings are resolved in layers: built-in defaults, then an optional YAML
// file, then SCAN_ALIGN_* environment variables (which a .env file may
// supply). The result is passed explicitly to the components that need it.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/scan-align/internal/cleanup"
	"github.com/ironsheep/scan-align/internal/skew"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCAN_ALIGN_"

// Config holds scan-align configuration.
type Config struct {
	// Debug keeps intermediate images and writes them under OutputDir.
	Debug     bool   `yaml:"debug"`
	OutputDir string `yaml:"output_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// MinRotation is the smallest fused angle, in degrees, that is corrected.
	MinRotation float64          `yaml:"min_rotation"`
	Mask        skew.MaskParams  `yaml:"mask"`
	Hough       skew.HoughParams `yaml:"hough"`
	Cleanup     cleanup.Options  `yaml:"cleanup"`

	OCRLanguage      string `yaml:"ocr_language"`
	BatchConcurrency int    `yaml:"batch_concurrency"`

	// Queue worker settings
	RedisURL          string `yaml:"redis_url"`
	QueueName         string `yaml:"queue_name"`
	WorkerConcurrency int    `yaml:"worker_concurrency"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir:         "debug",
		LogLevel:          "info",
		MinRotation:       skew.DefaultMinRotation,
		Mask:              skew.DefaultMaskParams(),
		Hough:             skew.DefaultHoughParams(),
		Cleanup:           cleanup.DefaultOptions(),
		OCRLanguage:       "eng",
		BatchConcurrency:  4,
		RedisURL:          "redis://localhost:6379/0",
		QueueName:         "scan-align",
		WorkerConcurrency: 4,
	}
}

// Load builds a configuration from the defaults, the YAML file at path (if
// path is not empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile copies the variables of a .env file into the process
// environment. Variables already set are left untouched. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from SCAN_ALIGN_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	var errs []error
	parseBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	parseInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	parseFloat := func(name string, dst *float64) {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	str := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	parseBool("DEBUG", &c.Debug)
	str("OUTPUT_DIR", &c.OutputDir)
	str("LOG_LEVEL", &c.LogLevel)
	parseFloat("MIN_ROTATION", &c.MinRotation)
	parseInt("HOUGH_THRESHOLD", &c.Hough.Threshold)
	parseInt("HOUGH_MIN_LINE_LENGTH", &c.Hough.MinLineLength)
	parseInt("HOUGH_MAX_LINE_GAP", &c.Hough.MaxLineGap)
	str("OCR_LANGUAGE", &c.OCRLanguage)
	parseInt("BATCH_CONCURRENCY", &c.BatchConcurrency)
	str("REDIS_URL", &c.RedisURL)
	str("QUEUE_NAME", &c.QueueName)
	parseInt("WORKER_CONCURRENCY", &c.WorkerConcurrency)

	return errors.Join(errs...)
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MinRotation < 0 {
		return fmt.Errorf("min_rotation must not be negative, got %v", c.MinRotation)
	}
	if c.Mask.BlockSize < 3 || c.Mask.BlockSize%2 == 0 {
		return fmt.Errorf("mask.block_size must be odd and at least 3, got %d", c.Mask.BlockSize)
	}
	if c.Mask.BlurKernel < 1 {
		return fmt.Errorf("mask.blur_kernel must be positive, got %d", c.Mask.BlurKernel)
	}

	h := c.Hough
	if h.CannyLow < 0 || h.CannyHigh < h.CannyLow {
		return fmt.Errorf("hough canny thresholds must satisfy 0 <= low <= high, got %d/%d", h.CannyLow, h.CannyHigh)
	}
	if h.Threshold < 1 || h.MinLineLength < 1 || h.MaxLineGap < 0 {
		return fmt.Errorf("hough threshold and min_line_length must be positive and max_line_gap not negative")
	}
	if h.MaxAngle <= 0 || h.MaxAngle > 90 {
		return fmt.Errorf("hough.max_angle must be in (0, 90], got %v", h.MaxAngle)
	}

	if err := c.Cleanup.Validate(); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	if c.Debug && c.OutputDir == "" {
		return fmt.Errorf("output_dir is required in debug mode")
	}
	if c.BatchConcurrency < 1 || c.BatchConcurrency > 256 {
		return fmt.Errorf("batch_concurrency must be between 1 and 256, got %d", c.BatchConcurrency)
	}
	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("worker_concurrency must be between 1 and 100, got %d", c.WorkerConcurrency)
	}
	if c.QueueName == "" {
		return fmt.Errorf("queue_name is required")
	}
	return nil
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger returns a text logger writing to w at the configured level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SkewOptions returns the aligner settings described by c.
func (c *Config) SkewOptions(logger *slog.Logger) skew.Options {
	return skew.Options{
		MinRotation: c.MinRotation,
		Mask:        c.Mask,
		Hough:       c.Hough,
		Debug:       c.Debug,
		OutputDir:   c.OutputDir,
		Logger:      logger,
	}
}

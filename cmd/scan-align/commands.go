package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/ironsheep/scan-align/internal/batch"
	"github.com/ironsheep/scan-align/internal/cleanup"
	"github.com/ironsheep/scan-align/internal/config"
	"github.com/ironsheep/scan-align/internal/queue"
	"github.com/ironsheep/scan-align/internal/server"
	"github.com/ironsheep/scan-align/internal/skew"
)

// errUsage reports that the flag set already printed a usage message.
var errUsage = errors.New("usage")

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	envFile    string
	debug      bool
	outputDir  string
	logLevel   string
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &commonFlags{}
	fs.StringVar(&c.configPath, "config", "", "Path to the config YAML file")
	fs.StringVar(&c.envFile, "env", ".env", "Path to a .env file with SCAN_ALIGN_* variables")
	fs.BoolVar(&c.debug, "debug", false, "Write intermediate images to the output directory")
	fs.StringVar(&c.outputDir, "output-dir", "", "Directory for debug images")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return fs, c
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		// The flag set has already reported the problem
		return errUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return errUsage
	}
	return nil
}

// load resolves the configuration: defaults, YAML, environment, then the
// flags that were set explicitly.
func (c *commonFlags) load(fs *flag.FlagSet, stderr io.Writer) (*config.Config, *slog.Logger, error) {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		fmt.Fprintf(stderr, "Warning: %v, using system environment variables\n", err)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "debug":
			cfg.Debug = c.debug
		case "output-dir":
			cfg.OutputDir = c.outputDir
		case "log-level":
			cfg.LogLevel = c.logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Logger(stderr), nil
}

func required(fs *flag.FlagSet, values map[string]string) error {
	for name, v := range values {
		if v == "" {
			fmt.Fprintf(fs.Output(), "Error: -%s flag is required\n", name)
			fs.Usage()
			return errUsage
		}
	}
	return nil
}

func runAlign(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("align", stderr)
	in := fs.String("in", "", "Input page (required)")
	out := fs.String("out", "", "Output path; the extension selects the format (required)")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"in": *in, "out": *out}); err != nil {
		return err
	}
	cfg, log, err := common.load(fs, stderr)
	if err != nil {
		return err
	}

	res, err := skew.New(cfg.SkewOptions(log)).AlignFile(ctx, *in, *out)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(stdout, "%s: angle %.3f from %d estimate(s) [%s, %s, %s], rotated=%v cropped=%v\n",
		*out, res.Angles.Fused, res.Angles.Available,
		res.Angles.MinArea, res.Angles.PrincipalAxis, res.Angles.Hough,
		res.Rotated, res.Cropped)
	return nil
}

func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("batch", stderr)
	in := fs.String("in", "", "Input directory (required)")
	out := fs.String("out", "", "Output directory (required)")
	clean := fs.Bool("clean", false, "Also write a cleaned copy of every aligned page")
	concurrency := fs.Int("concurrency", 0, "Pages processed at once (default from config)")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"in": *in, "out": *out}); err != nil {
		return err
	}
	cfg, log, err := common.load(fs, stderr)
	if err != nil {
		return err
	}
	if *concurrency > 0 {
		cfg.BatchConcurrency = *concurrency
	}

	report, err := batch.Run(ctx, skew.New(cfg.SkewOptions(log)), *in, *out, batch.Options{
		Concurrency: cfg.BatchConcurrency,
		Clean:       *clean,
		Cleanup:     cfg.Cleanup,
		Logger:      log,
	})
	if report != nil {
		if *asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			for _, item := range report.Items {
				if item.Err != nil {
					fmt.Fprintf(stdout, "FAIL %s: %v\n", item.Input, item.Err)
					continue
				}
				fmt.Fprintf(stdout, "ok   %s -> %s (%.3f deg, %d estimates)\n", item.Input, item.Output, item.Angle, item.Estimates)
			}
		}
	}
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d pages failed", report.Failed, len(report.Items))
	}
	return nil
}

func runClean(args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("clean", stderr)
	in := fs.String("in", "", "Input page (required)")
	out := fs.String("out", "", "Output path (required)")
	noDenoise := fs.Bool("no-denoise", false, "Skip the bilateral denoise stage")
	noBinarize := fs.Bool("no-binarize", false, "Keep grayscale instead of binarizing")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"in": *in, "out": *out}); err != nil {
		return err
	}
	cfg, log, err := common.load(fs, stderr)
	if err != nil {
		return err
	}

	opts := cfg.Cleanup
	opts.Denoise = opts.Denoise && !*noDenoise
	opts.Binarize = opts.Binarize && !*noBinarize
	if err := cleanup.CleanFile(*in, *out, opts); err != nil {
		return err
	}
	log.Info("cleaned", "input", *in, "output", *out)
	fmt.Fprintln(stdout, *out)
	return nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs, common := newFlagSet("serve", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	cfg, log, err := common.load(fs, stderr)
	if err != nil {
		return err
	}

	log.Debug("starting MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)
	srv := server.New(server.Options{
		Skew:        cfg.SkewOptions(log),
		Cleanup:     cfg.Cleanup,
		OCRLanguage: cfg.OCRLanguage,
		Version:     Version,
		Logger:      log,
	})
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runWorker(ctx context.Context, args []string, stderr io.Writer) error {
	fs, common := newFlagSet("worker", stderr)
	if err := parse(fs, args); err != nil {
		return err
	}
	cfg, log, err := common.load(fs, stderr)
	if err != nil {
		return err
	}

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:    cfg.RedisURL,
		QueueName:   cfg.QueueName,
		Concurrency: cfg.WorkerConcurrency,
		Handler: &queue.Handler{
			Aligner: skew.New(cfg.SkewOptions(log)),
			Cleanup: cfg.Cleanup,
			Logger:  log,
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize queue consumer: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	log.Info("worker ready; waiting for jobs", "queue", cfg.QueueName, "workers", cfg.WorkerConcurrency)

	<-ctx.Done()
	log.Info("shutdown signal received")
	return consumer.Stop(context.Background())
}

func runEnqueue(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("enqueue", stderr)
	in := fs.String("in", "", "Input page, as seen by the worker (required)")
	out := fs.String("out", "", "Output path, as seen by the worker (required)")
	clean := fs.Bool("clean", false, "Also write a cleaned copy")
	jobID := fs.String("job-id", "", "Job ID (generated when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"in": *in, "out": *out}); err != nil {
		return err
	}
	cfg, _, err := common.load(fs, stderr)
	if err != nil {
		return err
	}

	enq, err := queue.NewEnqueuer(cfg.RedisURL, cfg.QueueName)
	if err != nil {
		return err
	}
	defer enq.Close()

	info, err := enq.Enqueue(ctx, queue.AlignPayload{Input: *in, Output: *out, Cleanup: *clean, JobID: *jobID})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "enqueued %s on %s\n", info.ID, info.Queue)
	return nil
}

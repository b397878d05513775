package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dunamismax/mkpdf/internal/config"
	"github.com/dunamismax/mkpdf/internal/domain"
	"github.com/dunamismax/mkpdf/internal/metrics"
	"github.com/dunamismax/mkpdf/internal/pdf"
	"github.com/dunamismax/mkpdf/internal/pipeline"
	"github.com/dunamismax/mkpdf/internal/storage"
	"github.com/dunamismax/mkpdf/internal/telemetry"
	"github.com/spf13/cobra"
)

const longHelp = `Concatenate images into a single multi-page PDF, one image per page.

Supported input formats: JPEG, PNG, BMP, GIF, TIFF, WEBP.
Inputs may be local paths or s3://bucket/key objects.

Resize modes:
  <w>x<h>   fit every page within w x h, keeping the aspect ratio
  min       fit within the smallest width and smallest height of all inputs
  max       fit within the largest width and largest height of all inputs

Filters:
  nearest, low, fast
  linear, good, triangle   (default)
  cubic, better, catmullrom
  lanczos, best, slow
  gaussian, blur`

type options struct {
	output      string
	inputs      []string
	resize      string
	filter      string
	dpi         float64
	upload      bool
	metricsFile string
	logLevel    string
}

func newRootCommand(stderr io.Writer) *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:           "mkpdf [flags] <output_file> <input_image1> [<input_image2>...]",
		Short:         "Concatenate images into a multi-page PDF",
		Long:          longHelp,
		Version:       version,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.output = args[0]
			opts.inputs = args[1:]

			cfg := config.Load()
			if cmd.Flags().Changed("dpi") {
				cfg.Render.DPI = opts.dpi
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = opts.logLevel
			}
			if cmd.Flags().Changed("metrics-file") {
				cfg.Metrics.TextfilePath = opts.metricsFile
			}

			if err := pipeline.Startup(); err != nil {
				return fmt.Errorf("start image backend: %w", err)
			}
			defer pipeline.Shutdown()
			return run(cmd.Context(), cfg, opts, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.resize, "resize", "r", "", "resize mode: <w>x<h>, min or max")
	flags.StringVarP(&opts.filter, "filter", "f", "", "resampling filter (default linear)")
	flags.Float64Var(&opts.dpi, "dpi", pdf.DefaultDPI, "page density in pixels per inch")
	flags.BoolVar(&opts.upload, "upload", false, "upload the finished PDF to the configured bucket")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this path")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	return cmd
}

func run(ctx context.Context, cfg config.Config, opts options, stderr io.Writer) (err error) {
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if cfg.Render.DPI <= 0 {
		return fmt.Errorf("%w: dpi must be positive, got %v", domain.ErrConfiguration, cfg.Render.DPI)
	}

	policy, err := domain.ParsePolicy(opts.resize, opts.filter)
	if err != nil {
		return err
	}

	cfg.Telemetry.ServiceVersion = version
	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := shutdownTracing(flushCtx); shutdownErr != nil {
			logger.Warn("tracing shutdown failed", "error", shutdownErr)
		}
	}()

	var store *storage.Client
	if cfg.Storage.Enabled() {
		store, err = storage.NewClient(cfg.Storage)
		if err != nil {
			return err
		}
	} else if opts.upload || hasObjectInput(opts.inputs) {
		return fmt.Errorf("%w: object storage requested but MINIO_ENDPOINT is not set", domain.ErrConfiguration)
	}

	runMetrics := metrics.NewRun()
	started := time.Now()
	defer func() {
		runMetrics.Finish(policy.Mode().String(), err, time.Since(started))
		if writeErr := runMetrics.WriteTextfile(cfg.Metrics.TextfilePath); writeErr != nil {
			logger.Warn("metrics export failed", "path", cfg.Metrics.TextfilePath, "error", writeErr)
		}
	}()

	path, title := pdf.ResolveOutput(opts.output)
	out, err := pdf.CreateOutput(path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if abortErr := out.Abort(); abortErr != nil {
				logger.Warn("partial output not removed", "path", path, "error", abortErr)
			}
		}
	}()

	doc := pdf.New(pdf.Options{DPI: cfg.Render.DPI, Producer: "mkpdf " + version})
	doc.SetTitle(title)

	fetcher := pipeline.SourceFetcher{Local: pipeline.LocalFileFetcher{}}
	if store != nil {
		fetcher.Object = pipeline.ObjectStoreFetcher{Storage: store}
	}

	logger.Debug("starting conversion",
		"output", path,
		"inputs", len(opts.inputs),
		"policy", policy,
		"backend", pipeline.Backend(),
		"dpi", cfg.Render.DPI,
	)

	processor := pipeline.NewProcessor(logger, fetcher)
	result, err := processor.Process(ctx, pipeline.Request{Inputs: opts.inputs, Policy: policy}, doc)
	if err != nil {
		return err
	}
	for _, page := range result.Pages {
		runMetrics.ObservePage(page.Passthrough, page.SourceBytes, page.Bytes, page.Width, page.Height)
	}

	written, err := doc.WriteTo(out)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err = out.Commit(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.Info("pdf written", "path", path, "pages", doc.Pages(), "bytes", written)

	if opts.upload {
		key := filepath.Base(path)
		if err = store.PublishFile(ctx, path, key); err != nil {
			return fmt.Errorf("upload stage: %w", err)
		}
		logger.Info("pdf uploaded", "bucket", store.Bucket(), "key", key)
	}
	return nil
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("%w: unknown log level %q", domain.ErrConfiguration, name)
	}
	return level, nil
}

func hasObjectInput(inputs []string) bool {
	for _, input := range inputs {
		if pipeline.IsObjectURL(input) {
			return true
		}
	}
	return false
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dunamismax/mkpdf/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Request struct {
	Inputs []string
	Policy domain.ResizePolicy
}

type Page struct {
	Source      string
	Width       int
	Height      int
	SourceBytes int
	Bytes       int
	Passthrough bool
}

type Result struct {
	Pages       []Page
	Target      domain.Resolution
	SourceBytes int
}

// PageSink receives finished JPEG pages in input order.
type PageSink interface {
	AddPage(jpeg []byte) error
}

type Processor struct {
	logger      *slog.Logger
	fetcher     Fetcher
	transformer Transformer
	tracer      trace.Tracer
}

func NewProcessor(logger *slog.Logger, fetcher Fetcher) *Processor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if fetcher == nil {
		fetcher = LocalFileFetcher{}
	}
	return &Processor{
		logger:      logger,
		fetcher:     fetcher,
		transformer: newTransformer(),
		tracer:      otel.Tracer("mkpdf/pipeline"),
	}
}

func NewLocalProcessor(logger *slog.Logger) *Processor {
	return NewProcessor(logger, LocalFileFetcher{})
}

// Process turns every input into one page of sink. Pages are handled one at
// a time, so at most one decoded raster is alive. Min and max policies read
// only image headers to find the target before any page is produced.
func (p *Processor) Process(ctx context.Context, req Request, sink PageSink) (Result, error) {
	if len(req.Inputs) == 0 {
		return Result{}, fmt.Errorf("%w: no input images", domain.ErrEmptyBatch)
	}
	if sink == nil {
		return Result{}, errors.New("page sink is required")
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.process")
	span.SetAttributes(
		attribute.Int("pipeline.inputs", len(req.Inputs)),
		attribute.String("pipeline.resize_mode", req.Policy.Mode().String()),
		attribute.String("pipeline.filter", req.Policy.Filter().String()),
	)
	defer span.End()

	step, err := p.plan(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return Result{}, fmt.Errorf("probe stage: %w", err)
	}
	if step.Resizes() {
		p.logger.Info("resizing pages", "mode", req.Policy.Mode(), "target", step.Target, "filter", step.Filter)
	}

	out := Result{Pages: make([]Page, 0, len(req.Inputs)), Target: step.Target}
	for i, source := range req.Inputs {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		page, data, err := p.page(ctx, source, step)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "page failed")
			return Result{}, fmt.Errorf("page %d (%s): %w", i+1, source, err)
		}

		if err := sink.AddPage(data); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "assemble failed")
			return Result{}, fmt.Errorf("assemble stage page=%d source=%s: %w", i+1, source, err)
		}

		p.logger.Debug("page added",
			"page", i+1,
			"source", source,
			"width", page.Width,
			"height", page.Height,
			"bytes", page.Bytes,
			"passthrough", page.Passthrough,
		)
		out.SourceBytes += page.SourceBytes
		out.Pages = append(out.Pages, page)
	}

	span.SetStatus(codes.Ok, "processed")
	return out, nil
}

func (p *Processor) plan(ctx context.Context, req Request) (Step, error) {
	step := Step{Filter: req.Policy.Filter()}

	switch req.Policy.Mode() {
	case domain.ModeOriginal:
		return step, nil
	case domain.ModeCustom:
		step.Target, _, _ = TargetResolution(req.Policy, nil)
		return step, nil
	}

	dims := make([]domain.Resolution, 0, len(req.Inputs))
	for _, source := range req.Inputs {
		data, err := p.fetcher.Fetch(ctx, source)
		if err != nil {
			return Step{}, fmt.Errorf("fetch %s: %w", source, err)
		}
		res, _, err := DecodeConfig(data)
		if err != nil {
			return Step{}, fmt.Errorf("read header %s: %w", source, err)
		}
		dims = append(dims, res)
	}

	target, _, err := TargetResolution(req.Policy, dims)
	if err != nil {
		return Step{}, err
	}
	step.Target = target
	return step, nil
}

func (p *Processor) page(ctx context.Context, source string, step Step) (Page, []byte, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.page")
	span.SetAttributes(attribute.String("page.source", source))
	defer span.End()

	input, err := p.fetcher.Fetch(ctx, source)
	if err != nil {
		return Page{}, nil, fmt.Errorf("fetch stage: %w", err)
	}

	page := Page{Source: source, SourceBytes: len(input)}

	// JPEG files go in verbatim unless they have to be resampled.
	if !step.Resizes() && isJPEG(input) {
		res, _, err := DecodeConfig(input)
		if err != nil {
			return Page{}, nil, fmt.Errorf("transform stage: %w", err)
		}
		page.Width, page.Height = res.Width, res.Height
		page.Bytes = len(input)
		page.Passthrough = true
		span.SetAttributes(attribute.Bool("page.passthrough", true))
		return page, input, nil
	}

	data, width, height, err := p.transformer.Transform(ctx, input, step)
	if err != nil {
		return Page{}, nil, fmt.Errorf("transform stage: %w", err)
	}
	page.Width, page.Height = width, height
	page.Bytes = len(data)
	span.SetAttributes(
		attribute.Int("page.width", width),
		attribute.Int("page.height", height),
	)
	return page, data, nil
}

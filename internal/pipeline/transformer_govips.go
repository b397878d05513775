//go:build govips && cgo

package pipeline

import (
	"context"
	"fmt"
	"image/jpeg"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/mkpdf/internal/domain"
)

// govipsTransformer hands decoding, resampling and encoding to libvips.
// libvips has no gaussian kernel, so those steps go through fallback.
type govipsTransformer struct {
	fallback Transformer
}

func (t govipsTransformer) Transform(ctx context.Context, input []byte, step Step) ([]byte, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}

	if step.Resizes() && step.Filter == domain.FilterGaussian {
		return t.fallback.Transform(ctx, input, step)
	}

	img, err := vips.NewImageFromBuffer(input)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode source image: %w: %v", domain.ErrDecode, err)
	}
	defer img.Close()

	if step.Resizes() {
		if err := applyGovipsResize(img, step); err != nil {
			return nil, 0, 0, err
		}
	}

	if err := flattenGovips(img); err != nil {
		return nil, 0, 0, err
	}

	params := vips.NewJpegExportParams()
	params.Quality = jpeg.DefaultQuality
	params.Interlace = false
	params.StripMetadata = true
	data, _, err := img.ExportJpeg(params)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: jpeg: %v", domain.ErrEncode, err)
	}

	return data, img.Width(), img.Height(), nil
}

func applyGovipsResize(img *vips.ImageRef, step Step) error {
	if img.Width() <= 0 || img.Height() <= 0 {
		return fmt.Errorf("%w: source image has invalid dimensions", domain.ErrDecode)
	}

	w, h := FitWithin(img.Width(), img.Height(), step.Target)
	if w == img.Width() && h == img.Height() {
		return nil
	}

	hscale := float64(w) / float64(img.Width())
	vscale := float64(h) / float64(img.Height())
	if err := img.ResizeWithVScale(hscale, vscale, govipsKernel(step.Filter)); err != nil {
		return fmt.Errorf("resize image: %w", err)
	}
	return nil
}

func flattenGovips(img *vips.ImageRef) error {
	if img.HasAlpha() {
		if err := img.Flatten(&vips.Color{R: 255, G: 255, B: 255}); err != nil {
			return fmt.Errorf("flatten alpha: %w", err)
		}
	}
	if err := img.ToColorSpace(vips.InterpretationSRGB); err != nil {
		return fmt.Errorf("convert to srgb: %w", err)
	}
	return nil
}

func govipsKernel(f domain.Filter) vips.Kernel {
	switch f {
	case domain.FilterNearest:
		return vips.KernelNearest
	case domain.FilterCatmullRom:
		return vips.KernelCubic
	case domain.FilterLanczos3:
		return vips.KernelLanczos3
	default:
		return vips.KernelLinear
	}
}

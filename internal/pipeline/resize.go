package pipeline

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/mkpdf/internal/domain"
)

// ResizeAll applies policy to every image of the batch and returns a batch of
// the same length and order. The original policy returns images untouched.
func ResizeAll(policy domain.ResizePolicy, images []image.Image) ([]image.Image, error) {
	if !policy.Resizes() {
		return images, nil
	}

	dims := make([]domain.Resolution, len(images))
	for i, img := range images {
		b := img.Bounds()
		dims[i] = domain.Resolution{Width: b.Dx(), Height: b.Dy()}
	}

	target, _, err := TargetResolution(policy, dims)
	if err != nil {
		return nil, err
	}

	out := make([]image.Image, len(images))
	for i, img := range images {
		out[i] = Resize(img, target, policy.Filter())
	}
	return out, nil
}

// TargetResolution reduces a policy to the bounding box every page is fitted
// into. Min and max take the component-wise minimum or maximum of dims, so
// 100x200 and 300x50 give 100x50 under min. ok is false for the original
// policy.
func TargetResolution(policy domain.ResizePolicy, dims []domain.Resolution) (target domain.Resolution, ok bool, err error) {
	switch policy.Mode() {
	case domain.ModeOriginal:
		return domain.Resolution{}, false, nil
	case domain.ModeCustom:
		target, _ = policy.Target()
		return target, true, nil
	case domain.ModeMin, domain.ModeMax:
		if len(dims) == 0 {
			return domain.Resolution{}, false, fmt.Errorf("%w: %s resize needs at least one image", domain.ErrEmptyBatch, policy.Mode())
		}
		target = dims[0]
		for _, d := range dims[1:] {
			if policy.Mode() == domain.ModeMin {
				target.Width = min(target.Width, d.Width)
				target.Height = min(target.Height, d.Height)
			} else {
				target.Width = max(target.Width, d.Width)
				target.Height = max(target.Height, d.Height)
			}
		}
		if err := target.Validate(); err != nil {
			return domain.Resolution{}, false, err
		}
		return target, true, nil
	default:
		return domain.Resolution{}, false, fmt.Errorf("%w: unsupported resize mode %s", domain.ErrConfiguration, policy.Mode())
	}
}

// FitWithin scales w x h so it fits inside bound with the aspect ratio kept.
// The limiting side touches the bound; each side is rounded to the nearest
// pixel and never drops below 1. Images smaller than bound grow.
func FitWithin(w, h int, bound domain.Resolution) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	ratio := math.Min(float64(bound.Width)/float64(w), float64(bound.Height)/float64(h))
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	return max(1, nw), max(1, nh)
}

// Resize fits img inside bound using filter. The source is returned as-is
// when it already has the fitted size.
func Resize(img image.Image, bound domain.Resolution, filter domain.Filter) image.Image {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), bound)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return imaging.Resize(img, w, h, resampleFilter(filter))
}

func resampleFilter(f domain.Filter) imaging.ResampleFilter {
	switch f {
	case domain.FilterNearest:
		return imaging.NearestNeighbor
	case domain.FilterCatmullRom:
		return imaging.CatmullRom
	case domain.FilterLanczos3:
		return imaging.Lanczos
	case domain.FilterGaussian:
		return imaging.Gaussian
	default:
		return imaging.Linear
	}
}

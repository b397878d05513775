package pipeline

import (
	"context"

	"github.com/dunamismax/mkpdf/internal/domain"
)

// Step describes the work done to one page. A zero Target means the page
// keeps its size.
type Step struct {
	Target domain.Resolution
	Filter domain.Filter
}

func (s Step) Resizes() bool {
	return s.Target.Width > 0 && s.Target.Height > 0
}

// Transformer decodes one encoded image, applies step, and returns the page
// as JPEG bytes with its final dimensions.
type Transformer interface {
	Transform(ctx context.Context, input []byte, step Step) (data []byte, width, height int, err error)
}

package pipeline

import (
	"context"
	"fmt"
)

type stdlibTransformer struct{}

func (t stdlibTransformer) Transform(ctx context.Context, input []byte, step Step) ([]byte, int, int, error) {
	select {
	case <-ctx.Done():
		return nil, 0, 0, ctx.Err()
	default:
	}

	src, _, err := Decode(input)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode source image: %w", err)
	}

	out := src
	if step.Resizes() {
		out = Resize(src, step.Target, step.Filter)
	}

	data, err := ConvertToJPEG(out)
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := out.Bounds()
	return data, bounds.Dx(), bounds.Dy(), nil
}

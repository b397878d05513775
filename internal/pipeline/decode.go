package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dunamismax/mkpdf/internal/domain"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode turns an encoded image into a raster. The returned format is the
// name the codec registered under ("jpeg", "png", "bmp", ...).
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", fmt.Errorf("%w: empty image %dx%d", domain.ErrDecode, b.Dx(), b.Dy())
	}
	return img, format, nil
}

// DecodeConfig reads only the image header.
func DecodeConfig(data []byte) (domain.Resolution, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Resolution{}, "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.Resolution{}, "", fmt.Errorf("%w: empty image %dx%d", domain.ErrDecode, cfg.Width, cfg.Height)
	}
	return domain.Resolution{Width: cfg.Width, Height: cfg.Height}, format, nil
}

func isJPEG(data []byte) bool {
	return len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
}

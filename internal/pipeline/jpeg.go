package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/mkpdf/internal/domain"
)

// Background is the color transparent pixels are composited over before
// JPEG encoding.
var Background = color.White

// ConvertToJPEG encodes img as a baseline 8-bit RGB JPEG at the encoder's
// default quality. Alpha is removed by compositing over Background, and
// grayscale input comes out as three-component RGB.
func ConvertToJPEG(img image.Image) ([]byte, error) {
	flat := flattenRGB(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(jpeg.DefaultQuality)); err != nil {
		return nil, fmt.Errorf("%w: jpeg: %v", domain.ErrEncode, err)
	}
	return buf.Bytes(), nil
}

func flattenRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), Background)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

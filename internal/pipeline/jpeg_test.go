package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToJPEGDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			if x < 32 {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 20, B: 20, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 0, G: 0, B: 0, A: 0})
			}
		}
	}

	data, err := ConvertToJPEG(img)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
	assert.Equal(t, color.YCbCrModel, cfg.ColorModel, "expected three-component output")

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// Transparent pixels are composited over white.
	r, g, b, a := decoded.At(56, 16).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))

	r, g, b, _ = decoded.At(8, 16).RGBA()
	assert.Greater(t, r>>8, uint32(170))
	assert.Less(t, g>>8, uint32(60))
	assert.Less(t, b>>8, uint32(60))
}

func TestConvertToJPEGGrayBecomesRGB(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 10))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}

	data, err := ConvertToJPEG(img)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, color.YCbCrModel, cfg.ColorModel)
}

func TestConvertToJPEGPaletted(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 16, 16), palette.Plan9)
	for i := range img.Pix {
		img.Pix[i] = uint8(i % len(palette.Plan9))
	}

	data, err := ConvertToJPEG(img)
	require.NoError(t, err)
	assert.True(t, isJPEG(data))
}

func TestConvertToJPEGOffsetBounds(t *testing.T) {
	img := gradientImage(40, 30).SubImage(image.Rect(10, 5, 30, 25))

	data, err := ConvertToJPEG(img)
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestConvertToJPEGRoundTripKeepsDimensions(t *testing.T) {
	first, err := ConvertToJPEG(gradientImage(123, 45))
	require.NoError(t, err)

	decoded, _, err := Decode(first)
	require.NoError(t, err)

	second, err := ConvertToJPEG(decoded)
	require.NoError(t, err)

	a, _, err := DecodeConfig(first)
	require.NoError(t, err)
	b, _, err := DecodeConfig(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

package estimate

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/optimize"
)

// fakeDecoder answers Header/Decode from a fixed in-memory image, letting
// tests drive the estimator's mode-selection table without a real bimg
// build.
type fakeDecoder struct {
	header imaging.HeaderInfo
	img    image.Image
}

func (f *fakeDecoder) Header(data []byte, format imaging.Format) (imaging.HeaderInfo, error) {
	return f.header, nil
}

func (f *fakeDecoder) Decode(data []byte, format imaging.Format) (image.Image, error) {
	return f.img, nil
}

func solidImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func bmpFixture(t *testing.T, width, height int) []byte {
	t.Helper()
	img := solidImage(width, height, color.RGBA{R: 100, G: 150, B: 200, A: 255})
	out, err := optimize.EncodeBMP24(img)
	require.NoError(t, err)
	return out
}

func gifFixture(t *testing.T, width, height int) []byte {
	t.Helper()
	img := solidImage(width, height, color.RGBA{R: 100, G: 150, B: 200, A: 255})
	buf := new(bytes.Buffer)
	require.NoError(t, gif.Encode(buf, img, &gif.Options{NumColors: 256}))
	return buf.Bytes()
}

func TestEstimateNeverExceedsOriginalSize(t *testing.T) {
	t.Parallel()

	data := bmpFixture(t, 400, 400)
	header := imaging.HeaderInfo{Width: 400, Height: 400, Mode: imaging.ColorModeRGB, BitDepth: 24, FrameCount: 1}
	decoder := &fakeDecoder{header: header, img: solidImage(400, 400, color.RGBA{R: 100, G: 150, B: 200, A: 255})}

	registry := optimize.NewRegistry(nil, nil)
	est := New(decoder, registry, nil)

	resp, err := est.Estimate(context.Background(), data, imaging.FormatBMP, imaging.DefaultConfig())
	require.NoError(t, err)

	assert.LessOrEqual(t, resp.EstimatedSize, resp.OriginalSize)
	assert.Equal(t, imaging.FormatBMP, resp.Format)
	assert.Equal(t, 400, resp.Width)
	assert.Equal(t, 400, resp.Height)
}

func TestEstimateSmallImageUsesExactMode(t *testing.T) {
	t.Parallel()

	// 100x100 = 10_000 pixels, well under the 150_000 exact-mode ceiling.
	data := bmpFixture(t, 100, 100)
	header := imaging.HeaderInfo{Width: 100, Height: 100, Mode: imaging.ColorModeRGB, BitDepth: 24, FrameCount: 1}
	decoder := &fakeDecoder{header: header, img: solidImage(100, 100, color.RGBA{R: 10, G: 20, B: 30, A: 255})}

	registry := optimize.NewRegistry(nil, nil)
	est := New(decoder, registry, nil)

	resp, err := est.Estimate(context.Background(), data, imaging.FormatBMP, imaging.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, imaging.ConfidenceHigh, resp.Confidence)
	assert.LessOrEqual(t, resp.EstimatedSize, resp.OriginalSize)
}

func TestEstimateAnimatedGIFUsesExactMode(t *testing.T) {
	t.Parallel()

	data := gifFixture(t, 500, 500)
	header := imaging.HeaderInfo{Width: 500, Height: 500, Mode: imaging.ColorModePalette, BitDepth: 8, FrameCount: 3}
	decoder := &fakeDecoder{header: header, img: solidImage(500, 500, color.RGBA{R: 1, G: 2, B: 3, A: 255})}

	registry := optimize.NewRegistry(nil, nil)
	est := New(decoder, registry, nil)

	resp, err := est.Estimate(context.Background(), data, imaging.FormatGIF, imaging.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, imaging.ConfidenceHigh, resp.Confidence)
	assert.LessOrEqual(t, resp.EstimatedSize, resp.OriginalSize)
}

func TestEstimateGenericSampleForLargeBMP(t *testing.T) {
	t.Parallel()

	// 1000x1000 exceeds the exact-mode pixel ceiling, routing BMP through
	// the generic-sample path (downsample, re-encode, run real optimizer).
	data := bmpFixture(t, 1000, 1000)
	header := imaging.HeaderInfo{Width: 1000, Height: 1000, Mode: imaging.ColorModeRGB, BitDepth: 24, FrameCount: 1}
	decoder := &fakeDecoder{header: header, img: solidImage(1000, 1000, color.RGBA{R: 100, G: 150, B: 200, A: 255})}

	registry := optimize.NewRegistry(nil, nil)
	est := New(decoder, registry, nil)

	resp, err := est.Estimate(context.Background(), data, imaging.FormatBMP, imaging.DefaultConfig())
	require.NoError(t, err)

	assert.LessOrEqual(t, resp.EstimatedSize, resp.OriginalSize)
	assert.Equal(t, imaging.ConfidenceHigh, resp.Confidence)
}

func TestConservativeFallbackPicksLossyVsLosslessReduction(t *testing.T) {
	t.Parallel()

	header := imaging.HeaderInfo{Width: 10, Height: 10}

	lossy := conservativeFallback(header, imaging.FormatJPEG, 1000, imaging.DefaultConfig())
	assert.Equal(t, imaging.ConfidenceLow, lossy.Confidence)
	assert.Equal(t, 700, lossy.EstimatedSize)

	cfg, err := imaging.NewOptimizationConfig(80, true, false, false, nil)
	require.NoError(t, err)
	lossless := conservativeFallback(header, imaging.FormatPNG, 1000, cfg)
	assert.Equal(t, 950, lossless.EstimatedSize)
}

func TestPotentialForBuckets(t *testing.T) {
	t.Parallel()

	assert.Equal(t, imaging.PotentialHigh, imaging.PotentialFor(30))
	assert.Equal(t, imaging.PotentialMedium, imaging.PotentialFor(10))
	assert.Equal(t, imaging.PotentialLow, imaging.PotentialFor(9.9))
}

func TestDownsamplePreservesAspectRatioAndCapsWidth(t *testing.T) {
	t.Parallel()

	img := solidImage(1600, 800, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	out := downsample(img, 800)

	bounds := out.Bounds()
	assert.Equal(t, 800, bounds.Dx())
	assert.Equal(t, 400, bounds.Dy())
}

func TestDownsampleNoOpWhenAlreadySmall(t *testing.T) {
	t.Parallel()

	img := solidImage(200, 100, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	out := downsample(img, 800)

	assert.Equal(t, img.Bounds(), out.Bounds())
}

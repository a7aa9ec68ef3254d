package estimate

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/optimize"
)

// pngLossyQualityCeiling mirrors the optimizer's PNG lossy cutoff:
// below it, and only when the config still permits
// lossy PNG, the sample is palette-quantized rather than losslessly
// re-deflated.
const pngLossyQualityCeiling = 70

// pngLossyLowColorCeiling splits the PNG direct-encode sample between
// 64 colors (below quality 50) and 256 colors (otherwise).
const pngLossyLowColorCeiling = 50

// encodeSample encodes the downsampled sample directly with the codec
// library at an encoder-specific quality setting, for every format
// the estimator samples (both the direct-encode formats and the
// generic-sample formats, which re-encode at minimal compression in their
// own format before handing off to the real optimizer). It returns the
// encoded bytes and the method label the eventual response reports.
func (e *Estimator) encodeSample(ctx context.Context, sample image.Image, format imaging.Format, cfg imaging.OptimizationConfig) ([]byte, string, error) {
	switch format {
	case imaging.FormatJPEG:
		return e.reencodeViaCodec(sample, imaging.FormatJPEG, cfg.Quality, cfg.ProgressiveJPEG, "jpegli")
	case imaging.FormatWebP:
		return e.reencodeViaCodec(sample, imaging.FormatWebP, cfg.Quality, false, "in-process")
	case imaging.FormatHEIC, imaging.FormatAVIF, imaging.FormatJXL:
		return e.reencodeNextGen(ctx, sample, format, cfg.Quality)
	case imaging.FormatPNG, imaging.FormatAPNG:
		return encodePNGSample(sample, cfg)
	case imaging.FormatBMP:
		out, err := optimize.EncodeBMP24(sample)
		return out, "bmp-24bit", err
	case imaging.FormatTIFF:
		return encodeTIFFSample(sample)
	case imaging.FormatGIF:
		return encodeGIFSample(sample)
	default:
		return nil, "", imaging.ErrUnsupportedFormat
	}
}

// reencodeViaCodec re-encodes sample through a lossless PNG intermediate
// (the codec's own decoder reads any bimg-supported input) and then the
// real Codec at the target quality, the same seam internal/optimize's
// JPEG/WebP optimizers use for their in-process candidate.
func (e *Estimator) reencodeViaCodec(sample image.Image, format imaging.Format, quality int, progressive bool, method string) ([]byte, string, error) {
	if e.codec == nil {
		return nil, "", imaging.ErrOptimizationFailed
	}
	intermediate, err := encodeLosslessPNG(sample)
	if err != nil {
		return nil, "", err
	}
	out, err := e.codec.Reencode(intermediate, format, quality, progressive)
	if err != nil {
		return nil, "", err
	}
	return out, method, nil
}

// reencodeNextGen mirrors NextGenOptimizer's re-encode candidate at
// the mapped quality, sharing optimize.NextGenTargetQuality and
// optimize.ReencodeNextGen so the estimate and optimize quality mappings
// can never drift apart.
func (e *Estimator) reencodeNextGen(ctx context.Context, sample image.Image, format imaging.Format, quality int) ([]byte, string, error) {
	intermediate, err := encodeLosslessPNG(sample)
	if err != nil {
		return nil, "", err
	}
	target := optimize.NextGenTargetQuality(format, quality)
	out, err := optimize.ReencodeNextGen(ctx, intermediate, format, e.codec, target)
	if err != nil {
		return nil, "", err
	}
	return out, "re-encode", nil
}

// encodePNGSample handles the PNG sample: palette-quantize to 64 or 256 colors when lossy PNG applies below
// quality 70, otherwise a plain maximum-deflate lossless encode.
func encodePNGSample(sample image.Image, cfg imaging.OptimizationConfig) ([]byte, string, error) {
	if cfg.PNGLossy && cfg.Quality < pngLossyQualityCeiling {
		colors := 256
		if cfg.Quality < pngLossyLowColorCeiling {
			colors = 64
		}
		paletted := quantizeToNColors(sample, colors)
		out, err := encodeLosslessPNG(paletted)
		return out, "pngquant + oxipng", err
	}
	out, err := encodeLosslessPNG(sample)
	return out, "oxipng", err
}

// encodeLosslessPNG writes img at maximum deflate compression, the
// estimator's stand-in for oxipng's lossless recompression pass (running
// the actual oxipng binary on a throwaway in-memory sample isn't worth a
// process spawn per estimate call; the compression ratio at max deflate
// tracks oxipng closely enough for BPP extrapolation purposes).
func encodeLosslessPNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// quantizeToNColors builds a uniform RGB-cube palette of approximately n
// colors and dithers sample onto it with Floyd-Steinberg, the same
// ditherer internal/optimize's BMP palette candidate uses.
func quantizeToNColors(img image.Image, n int) *image.Paletted {
	pal := uniformPalette(n)
	bounds := img.Bounds()
	dst := image.NewPaletted(bounds, pal)
	draw.FloydSteinberg.Draw(dst, bounds, img, bounds.Min)
	return dst
}

// uniformPalette returns a palette of side^3 colors spaced evenly across
// the RGB cube, where side is the largest integer with side^3 <= n. This
// is a coarse stand-in for pngquant's median-cut quantizer, adequate for
// the estimator's BPP extrapolation rather than for visual fidelity.
func uniformPalette(n int) color.Palette {
	side := 2
	for (side+1)*(side+1)*(side+1) <= n {
		side++
	}
	step := 255 / (side - 1)

	pal := make(color.Palette, 0, side*side*side)
	for r := 0; r < side; r++ {
		for g := 0; g < side; g++ {
			for b := 0; b < side; b++ {
				pal = append(pal, color.RGBA{
					R: uint8(r * step),
					G: uint8(g * step),
					B: uint8(b * step),
					A: 0xFF,
				})
			}
		}
	}
	return pal
}

// encodeTIFFSample re-encodes the downsampled sample as an uncompressed
// TIFF, the minimal-compression generic-sample step for a
// format whose real optimizer (internal/optimize.TIFFOptimizer) then runs
// on this output.
func encodeTIFFSample(sample image.Image) ([]byte, string, error) {
	out, err := encodeTIFF(sample)
	return out, "uncompressed", err
}

// encodeGIFSample re-encodes the downsampled sample as a single-frame GIF
// at the standard library's default (no) compression tuning, feeding
// internal/optimize.GIFOptimizer's gifsicle pipeline next.
func encodeGIFSample(sample image.Image) ([]byte, string, error) {
	buf := new(bytes.Buffer)
	if err := gif.Encode(buf, sample, &gif.Options{NumColors: 256}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "gif", nil
}

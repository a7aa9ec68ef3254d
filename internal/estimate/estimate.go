// Package estimate implements the sample-based size estimator: for
// most formats, it is cheaper to downsample, re-encode a
// small sample, and extrapolate bits-per-pixel across the original
// resolution than to run the real optimizer end to end.
package estimate

import (
	"context"
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/optimize"
)

// exactPixelCeiling is the "small enough to just run the real
// optimizer" threshold.
const exactPixelCeiling = 150_000

// timeoutFallback is the budget for the sample path before a
// conservative fallback takes over.
const timeoutFallback = 3 * time.Second

const (
	sampleWidthJPEG    = 1600
	sampleWidthNextGen = 800
	sampleWidthPNG     = 800
	sampleWidthGeneric = 300
)

// Decoder is the seam for header inspection and pixel decode, implemented
// by a bimg-backed adapter the same way internal/optimize.Codec is.
type Decoder interface {
	Header(data []byte, format imaging.Format) (imaging.HeaderInfo, error)
	Decode(data []byte, format imaging.Format) (image.Image, error)
}

// Estimator predicts optimization outcomes without producing output
// bytes: estimate(bytes, config) -> EstimateResponse.
type Estimator struct {
	decoder  Decoder
	registry *optimize.Registry
	codec    optimize.Codec
}

// New builds an Estimator backed by decoder for header/pixel access,
// registry for the exact and generic-sample paths (which both route
// through the real optimizers), and codec for the direct-encode sample
// path's quality-targeted re-encodes (JPEG/WebP/AVIF/HEIC/JXL) — the same
// Codec the optimizers themselves use, so the estimator can never drift
// from the optimizer's quality mapping.
func New(decoder Decoder, registry *optimize.Registry, codec optimize.Codec) *Estimator {
	return &Estimator{decoder: decoder, registry: registry, codec: codec}
}

// Estimate picks an estimation mode per format, frame count, and pixel
// count, then runs it under the sample-path deadline. Unlike
// Optimize, estimation never acquires the compression gate — it is
// bounded by construction to at most one sample decode/encode.
func (e *Estimator) Estimate(ctx context.Context, data []byte, format imaging.Format, cfg imaging.OptimizationConfig) (imaging.EstimateResponse, error) {
	header, err := e.decoder.Header(data, format)
	if err != nil {
		return imaging.EstimateResponse{}, err
	}

	done := make(chan estimateOutcome, 1)
	go func() {
		resp, err := e.estimateNoTimeout(ctx, data, format, cfg, header)
		done <- estimateOutcome{resp: resp, err: err}
	}()

	select {
	case outcome := <-done:
		return outcome.resp, outcome.err
	case <-time.After(timeoutFallback):
		return conservativeFallback(header, format, len(data), cfg), nil
	}
}

type estimateOutcome struct {
	resp imaging.EstimateResponse
	err  error
}

func (e *Estimator) estimateNoTimeout(ctx context.Context, data []byte, format imaging.Format, cfg imaging.OptimizationConfig, header imaging.HeaderInfo) (imaging.EstimateResponse, error) {
	switch {
	case format.IsVectorFormat():
		return e.exact(ctx, data, format, cfg, header, imaging.ConfidenceHigh)
	case header.IsAnimated():
		return e.exact(ctx, data, format, cfg, header, imaging.ConfidenceHigh)
	case header.Pixels() <= exactPixelCeiling:
		return e.exact(ctx, data, format, cfg, header, imaging.ConfidenceHigh)
	case format == imaging.FormatJPEG:
		return e.directEncodeSample(ctx, data, format, cfg, header, sampleWidthJPEG)
	case format == imaging.FormatHEIC, format == imaging.FormatAVIF, format == imaging.FormatJXL, format == imaging.FormatWebP:
		return e.directEncodeSample(ctx, data, format, cfg, header, sampleWidthNextGen)
	case format == imaging.FormatPNG, format == imaging.FormatAPNG:
		return e.directEncodeSample(ctx, data, format, cfg, header, sampleWidthPNG)
	default:
		// BMP / TIFF / GIF.
		return e.genericSample(ctx, data, format, cfg, header)
	}
}

// exact runs the real optimizer on the full file and reports the real
// reduction it finds.
func (e *Estimator) exact(ctx context.Context, data []byte, format imaging.Format, cfg imaging.OptimizationConfig, header imaging.HeaderInfo, confidence imaging.Confidence) (imaging.EstimateResponse, error) {
	result, err := e.registry.Dispatch(ctx, nil, data, cfg)
	if err != nil {
		return imaging.EstimateResponse{}, err
	}
	return imaging.NewEstimateResponse(header, format, len(data), result.OptimizedSize, result.Method, confidence), nil
}

// directEncodeSample is the critical path: downsample, encode the sample directly at the mapped quality, compute
// sample BPP, extrapolate across the original pixel count.
func (e *Estimator) directEncodeSample(ctx context.Context, data []byte, format imaging.Format, cfg imaging.OptimizationConfig, header imaging.HeaderInfo, maxWidth int) (imaging.EstimateResponse, error) {
	img, err := e.decoder.Decode(data, format)
	if err != nil {
		return imaging.EstimateResponse{}, err
	}

	sample := downsample(img, maxWidth)
	sampleBounds := sample.Bounds()
	sampleWidth, sampleHeight := sampleBounds.Dx(), sampleBounds.Dy()

	sampleBytes, method, err := e.encodeSample(ctx, sample, format, cfg)
	if err != nil || sampleWidth == 0 || sampleHeight == 0 {
		return conservativeFallback(header, format, len(data), cfg), nil
	}

	sampleBPP := float64(len(sampleBytes)*8) / float64(sampleWidth*sampleHeight)
	estimatedSize := int(sampleBPP * float64(header.Pixels()) / 8)

	return imaging.NewEstimateResponse(header, format, len(data), estimatedSize, method, imaging.ConfidenceHigh), nil
}

// genericSample is the fallback for formats with no
// direct-encode sample path: downsample to 300px wide, re-encode at
// minimal compression in the same format, then run the real optimizer on
// that small re-encoded sample so its BPP reflects the input format's
// actual optimizer behavior rather than a generic guess.
func (e *Estimator) genericSample(ctx context.Context, data []byte, format imaging.Format, cfg imaging.OptimizationConfig, header imaging.HeaderInfo) (imaging.EstimateResponse, error) {
	img, err := e.decoder.Decode(data, format)
	if err != nil {
		return imaging.EstimateResponse{}, err
	}

	sample := downsample(img, sampleWidthGeneric)
	sampleBounds := sample.Bounds()
	sampleWidth, sampleHeight := sampleBounds.Dx(), sampleBounds.Dy()

	rawSample, _, err := e.encodeSample(ctx, sample, format, cfg)
	if err != nil {
		return conservativeFallback(header, format, len(data), cfg), nil
	}

	result, err := e.registry.Dispatch(ctx, nil, rawSample, cfg)
	if err != nil {
		return conservativeFallback(header, format, len(data), cfg), nil
	}

	sampleBPP := float64(result.OptimizedSize*8) / float64(sampleWidth*sampleHeight)
	estimatedSize := int(sampleBPP * float64(header.Pixels()) / 8)

	return imaging.NewEstimateResponse(header, format, len(data), estimatedSize, result.Method, imaging.ConfidenceHigh), nil
}

// downsample proportionally shrinks img so its width is at most maxWidth.
// draw.CatmullRom is the closest kernel x/image/draw offers to true
// Lanczos resampling.
func downsample(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxWidth {
		return img
	}

	targetHeight := height * maxWidth / width
	if targetHeight < 1 {
		targetHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// conservativeFallback is the deadline-exceeded fallback: 30%
// assumed reduction for lossy presets, 5% for lossless, confidence low.
func conservativeFallback(header imaging.HeaderInfo, format imaging.Format, originalSize int, cfg imaging.OptimizationConfig) imaging.EstimateResponse {
	reductionPercent := 5
	if cfg.PNGLossy || format == imaging.FormatJPEG || format == imaging.FormatWebP ||
		format == imaging.FormatAVIF || format == imaging.FormatHEIC || format == imaging.FormatJXL {
		reductionPercent = 30
	}

	estimatedSize := originalSize * (100 - reductionPercent) / 100
	return imaging.NewEstimateResponse(header, format, originalSize, estimatedSize, "timeout-fallback", imaging.ConfidenceLow)
}

//go:build cgo

package optimize

import (
	"fmt"

	"github.com/h2non/bimg"

	"github.com/amitray007/pare/internal/imaging"
)

// BimgCodec is the production Codec: every re-encode flows through the
// same bimg.Options{Quality, Type, Interpretation} shape for every
// format libvips understands.
type BimgCodec struct{}

func bimgType(format imaging.Format) (bimg.ImageType, bool) {
	switch format {
	case imaging.FormatJPEG:
		return bimg.JPEG, true
	case imaging.FormatPNG, imaging.FormatAPNG:
		return bimg.PNG, true
	case imaging.FormatWebP:
		return bimg.WEBP, true
	case imaging.FormatGIF:
		return bimg.GIF, true
	case imaging.FormatTIFF:
		return bimg.TIFF, true
	case imaging.FormatAVIF:
		return bimg.AVIF, true
	case imaging.FormatHEIC:
		return bimg.HEIF, true
	default:
		return 0, false
	}
}

func (BimgCodec) Reencode(data []byte, format imaging.Format, quality int, progressive bool) ([]byte, error) {
	targetType, ok := bimgType(format)
	if !ok {
		return nil, fmt.Errorf("%w: bimg has no encoder for %s", imaging.ErrOptimizationFailed, format)
	}

	options := bimg.Options{
		Quality:        quality,
		Type:           targetType,
		Interpretation: bimg.InterpretationSRGB,
		Interlace:      progressive,
	}

	out, err := bimg.NewImage(data).Process(options)
	if err != nil {
		return nil, fmt.Errorf("%w: bimg re-encode: %w", imaging.ErrOptimizationFailed, err)
	}
	return out, nil
}

// ReencodeTIFFVariant implements TIFFCodec. libvips doesn't expose a
// dedicated "compression scheme" enum through bimg's Options the way it
// does Quality/Type, so Deflate and LZW are distinguished by the
// Compression field (libvips' tiff saver treats it as the zlib level for
// Deflate and ignores it for LZW) and JPEG-in-TIFF reuses the ordinary
// quality-driven path with bimg.TIFF as the target and Quality forwarded.
func (b BimgCodec) ReencodeTIFFVariant(data []byte, variant TIFFVariant, quality int) ([]byte, error) {
	options := bimg.Options{
		Type:           bimg.TIFF,
		Interpretation: bimg.InterpretationSRGB,
	}

	switch variant {
	case TIFFDeflate:
		options.Compression = 6
	case TIFFLZW:
		options.Compression = 0
	case TIFFJPEGInTIFF:
		options.Quality = quality
	}

	out, err := bimg.NewImage(data).Process(options)
	if err != nil {
		return nil, fmt.Errorf("%w: bimg tiff re-encode: %w", imaging.ErrOptimizationFailed, err)
	}
	return out, nil
}

// StripMetadata implements metadata.Stripper for formats whose strip
// facility is libvips' own (TIFF/WebP/AVIF/HEIC), re-saving
// through the same format with StripMetadata set and no quality change.
func (BimgCodec) StripMetadata(data []byte) ([]byte, error) {
	img := bimg.NewImage(data)
	imgType := bimg.DetermineImageType(data)

	out, err := img.Process(bimg.Options{
		Type:          imgType,
		StripMetadata: true,
		NoProfile:     false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bimg metadata strip: %w", imaging.ErrOptimizationFailed, err)
	}
	return out, nil
}

package imaging

import "fmt"

// Format is the closed enumeration of image formats the core understands.
// It is determined by magic-byte inspection (internal/detect) and never by
// filename or declared content type.
type Format string

const (
	FormatPNG   Format = "png"
	FormatAPNG  Format = "apng"
	FormatJPEG  Format = "jpeg"
	FormatWebP  Format = "webp"
	FormatGIF   Format = "gif"
	FormatSVG   Format = "svg"
	FormatSVGZ  Format = "svgz"
	FormatAVIF  Format = "avif"
	FormatHEIC  Format = "heic"
	FormatTIFF  Format = "tiff"
	FormatBMP   Format = "bmp"
	FormatJXL   Format = "jxl"
)

// AllFormats returns the twelve supported formats in a fixed order (not
// the detector's check order; the order only matters for iteration in
// tests).
func AllFormats() []Format {
	return []Format{
		FormatPNG, FormatAPNG, FormatJPEG, FormatWebP, FormatGIF, FormatSVG,
		FormatSVGZ, FormatAVIF, FormatHEIC, FormatTIFF, FormatBMP, FormatJXL,
	}
}

// IsValid reports whether f is one of the twelve known formats.
func (f Format) IsValid() bool {
	switch f {
	case FormatPNG, FormatAPNG, FormatJPEG, FormatWebP, FormatGIF, FormatSVG,
		FormatSVGZ, FormatAVIF, FormatHEIC, FormatTIFF, FormatBMP, FormatJXL:
		return true
	default:
		return false
	}
}

// String returns the lowercase format tag, matching the `format` field of
// OptimizeResult/EstimateResponse.
func (f Format) String() string {
	return string(f)
}

// ParseFormat validates a raw string against the closed set. Unlike the
// detector this does not inspect bytes; it exists for round-tripping a
// format tag that came back out of a result record.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// IsAnimated reports whether the format tag itself implies the possibility
// of multiple frames (the actual frame count still comes from HeaderInfo).
func (f Format) IsAnimated() bool {
	return f == FormatAPNG || f == FormatGIF
}

// IsVectorFormat reports whether the format is XML-based (SVG/SVGZ),
// which never goes through raster codec candidates.
func (f Format) IsVectorFormat() bool {
	return f == FormatSVG || f == FormatSVGZ
}

// Package metadata implements selective metadata preservation: EXIF
// orientation and ICC color profile survive stripping; GPS, camera info,
// XMP, IPTC, embedded thumbnails, comments, and PNG text chunks do not.
// PNG and JPEG are walked chunk-by-chunk / segment-by-segment in process,
// the same way the detector walks PNG chunks to spot APNG; the remaining
// raster formats defer to the codec library's own strip facility via the
// Stripper interface.
package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/amitray007/pare/internal/imaging"
)

// Stripper re-encodes data through a codec-library strip facility. It is
// implemented by an adapter over bimg/libvips for TIFF/WebP/AVIF/HEIC,
// the formats with no in-process chunk walker here.
type Stripper interface {
	StripMetadata(data []byte) ([]byte, error)
}

// Strip removes non-essential metadata from data according to format,
// preserving EXIF orientation and ICC color profile. codecStripper is
// consulted for formats with no in-process chunk walker here (TIFF, WebP,
// AVIF, HEIC); it may be nil if the caller only ever strips PNG/JPEG.
func Strip(format imaging.Format, data []byte, codecStripper Stripper) ([]byte, error) {
	switch format {
	case imaging.FormatPNG, imaging.FormatAPNG:
		return stripPNG(data)
	case imaging.FormatJPEG:
		return stripJPEG(data)
	case imaging.FormatGIF, imaging.FormatSVG, imaging.FormatSVGZ, imaging.FormatBMP:
		// GIF carries no EXIF/ICC metadata layer of consequence; SVG/SVGZ
		// go through the sanitizer (internal/optimize/svg), not here; BMP
		// has no standard metadata segment at all. Pass through.
		return data, nil
	case imaging.FormatTIFF, imaging.FormatWebP, imaging.FormatAVIF, imaging.FormatHEIC:
		if codecStripper == nil {
			return data, nil
		}
		return codecStripper.StripMetadata(data)
	default:
		return nil, fmt.Errorf("%w: %s", imaging.ErrUnsupportedFormat, format)
	}
}

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// retainedPNGChunks is the keep allow-list: structural and pixel-data
// chunks, plus the two metadata chunks worth keeping (embedded ICC
// profile and physical pixel dimensions).
var retainedPNGChunks = map[string]bool{
	"IHDR": true,
	"iCCP": true,
	"pHYs": true,
	"IDAT": true,
	"fdAT": true,
	"fcTL": true,
	"acTL": true,
	"IEND": true,
}

// stripPNG rewrites the chunk stream keeping only retainedPNGChunks,
// dropping tEXt/iTXt/zTXt and any other ancillary chunk not in the list
// (tIME, eXIf's GPS/camera fields, etc.) Recomputing CRCs is unnecessary
// since retained chunks are copied byte-for-byte including their
// original CRC.
func stripPNG(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("%w: not a PNG signature", imaging.ErrOptimizationFailed)
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(pngSignature)

	offset := len(pngSignature)
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		chunkType := string(data[offset+4 : offset+8])
		chunkEnd := offset + 8 + length + 4
		if chunkEnd > len(data) {
			return nil, fmt.Errorf("%w: truncated PNG chunk %q", imaging.ErrOptimizationFailed, chunkType)
		}

		if retainedPNGChunks[chunkType] {
			out.Write(data[offset:chunkEnd])
		}

		offset = chunkEnd
	}

	return out.Bytes(), nil
}

// JPEG marker bytes relevant to segment walking. RST0-RST7
// ([0xD0,0xD7]) and EOI (0xD9) carry no length field and are copied
// verbatim; every other marker is read with a 2-byte big-endian length
// (inclusive of the length field itself).
const (
	jpegMarkerPrefix = 0xFF
	jpegSOI          = 0xD8
	jpegEOI          = 0xD9
	jpegSOS          = 0xDA
	jpegAPP1         = 0xE1 // EXIF
	jpegAPP2         = 0xE2 // ICC profile (may span multiple APP2 segments)
)

// exifOrientationTag is the EXIF IFD0 tag number for image orientation.
const exifOrientationTag = 0x0112

// stripJPEG re-emits the JPEG segment stream, keeping every non-APP
// segment (DQT, DHT, SOF, SOS + entropy-coded scan data, etc.) untouched,
// replacing APP1 (EXIF) with a synthetic minimal EXIF block carrying only
// the orientation tag (when present), keeping APP2 (ICC profile)
// segments verbatim, and dropping every other APPn segment (APP0/JFIF,
// APP13/IPTC+Photoshop, APP14/Adobe transform hints beyond what's needed,
// XMP-in-APP1, comments).
func stripJPEG(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != jpegMarkerPrefix || data[1] != jpegSOI {
		return nil, fmt.Errorf("%w: not a JPEG SOI marker", imaging.ErrOptimizationFailed)
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(data[0:2])

	offset := 2
	for offset+1 < len(data) {
		if data[offset] != jpegMarkerPrefix {
			// Not aligned on a marker; copy the remainder verbatim
			// (entropy-coded scan data after SOS has no marker framing).
			out.Write(data[offset:])
			break
		}

		marker := data[offset+1]

		if marker == jpegEOI {
			out.Write(data[offset : offset+2])
			offset += 2
			continue
		}

		if marker >= 0xD0 && marker <= 0xD7 {
			// RST markers: no length field.
			out.Write(data[offset : offset+2])
			offset += 2
			continue
		}

		if offset+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated JPEG segment", imaging.ErrOptimizationFailed)
		}
		length := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		segmentEnd := offset + 2 + length
		if segmentEnd > len(data) {
			return nil, fmt.Errorf("%w: truncated JPEG segment", imaging.ErrOptimizationFailed)
		}

		switch {
		case marker == jpegAPP1:
			if orientation, ok := extractOrientation(data[offset+4 : segmentEnd]); ok {
				out.Write(buildMinimalEXIFOrientation(orientation))
			}
			// else: drop the segment entirely (no orientation to keep).
		case marker == jpegAPP2:
			// ICC profile chunks: keep verbatim.
			out.Write(data[offset:segmentEnd])
		case marker >= 0xE0 && marker <= 0xEF:
			// Every other APPn (JFIF, IPTC, Adobe, XMP, comments): drop.
		case marker == 0xFE:
			// COM (comment): drop.
		default:
			out.Write(data[offset:segmentEnd])
		}

		offset = segmentEnd

		if marker == jpegSOS {
			// Entropy-coded data follows with no further markers until the
			// next real marker (0xFF not followed by 0x00 stuffing or an
			// RST code); copy everything remaining as-is from here.
			out.Write(data[offset:])
			break
		}
	}

	return out.Bytes(), nil
}

// extractOrientation parses a minimal TIFF/EXIF IFD0 inside an APP1
// payload (after the 6-byte "Exif\x00\x00" header) looking for tag
// 0x0112. Returns ok=false if the segment isn't EXIF or carries no
// orientation tag.
func extractOrientation(payload []byte) (uint16, bool) {
	const exifHeader = "Exif\x00\x00"
	if len(payload) < len(exifHeader)+8 || string(payload[:len(exifHeader)]) != exifHeader {
		return 0, false
	}
	tiff := payload[len(exifHeader):]

	var order binary.ByteOrder
	switch string(tiff[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, false
	}

	ifdOffset := order.Uint32(tiff[4:8])
	if int(ifdOffset)+2 > len(tiff) {
		return 0, false
	}

	entryCount := int(order.Uint16(tiff[ifdOffset : ifdOffset+2]))
	entriesStart := int(ifdOffset) + 2
	const entrySize = 12
	for i := 0; i < entryCount; i++ {
		entryOffset := entriesStart + i*entrySize
		if entryOffset+entrySize > len(tiff) {
			break
		}
		tag := order.Uint16(tiff[entryOffset : entryOffset+2])
		if tag == exifOrientationTag {
			value := order.Uint16(tiff[entryOffset+8 : entryOffset+10])
			return value, true
		}
	}
	return 0, false
}

// buildMinimalEXIFOrientation emits a standalone APP1 segment containing
// just enough TIFF structure to carry the orientation tag, discarding
// every other EXIF field (GPS, camera make/model, timestamps, thumbnail).
func buildMinimalEXIFOrientation(orientation uint16) []byte {
	tiff := new(bytes.Buffer)
	tiff.WriteString("Exif\x00\x00")
	tiff.WriteString("MM")                         // big-endian
	tiff.Write([]byte{0x00, 0x2A})                 // TIFF magic
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x08})      // IFD0 offset
	tiff.Write([]byte{0x00, 0x01})                  // one entry
	tiff.Write([]byte{0x01, 0x12})                  // tag 0x0112 orientation
	tiff.Write([]byte{0x00, 0x03})                  // type SHORT
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x01})      // count
	binary.Write(tiff, binary.BigEndian, orientation)
	tiff.Write([]byte{0x00, 0x00})                  // pad value field to 4 bytes
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x00})      // next IFD offset: none

	segment := new(bytes.Buffer)
	segment.Write([]byte{jpegMarkerPrefix, jpegAPP1})
	length := uint16(2 + tiff.Len())
	binary.Write(segment, binary.BigEndian, length)
	segment.Write(tiff.Bytes())
	return segment.Bytes()
}

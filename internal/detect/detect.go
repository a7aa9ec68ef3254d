// Package detect identifies one of the twelve supported image formats
// from magic bytes. Detection never consults a filename or a declared
// content type — misidentification here would silently corrupt output.
package detect

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/amitray007/pare/internal/imaging"
)

var (
	pngSignature  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegSignature = []byte{0xFF, 0xD8, 0xFF}
	gif87Sig      = []byte("GIF87a")
	gif89Sig      = []byte("GIF89a")
	riffSig       = []byte("RIFF")
	webpSig       = []byte("WEBP")
	bmpSig        = []byte("BM")
	tiffLESig     = []byte{0x49, 0x49, 0x2A, 0x00}
	tiffBESig     = []byte{0x4D, 0x4D, 0x00, 0x2A}
	gzipSig       = []byte{0x1F, 0x8B}
	jxlBareSig    = []byte{0xFF, 0x0A}
	ftypTag       = []byte("ftyp")
)

// Detect identifies the format of data by inspecting its leading bytes.
// It requires at least the first ~32 bytes for the ISO-BMFF formats
// (AVIF/HEIC/JXL) to resolve brands reliably, but degrades gracefully on
// shorter inputs (just returns ErrUnsupportedFormat instead of panicking).
func Detect(data []byte) (imaging.Format, error) {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		if isAPNG(data) {
			return imaging.FormatAPNG, nil
		}
		return imaging.FormatPNG, nil
	case bytes.HasPrefix(data, jpegSignature):
		return imaging.FormatJPEG, nil
	case bytes.HasPrefix(data, gif87Sig), bytes.HasPrefix(data, gif89Sig):
		return imaging.FormatGIF, nil
	case isWebP(data):
		return imaging.FormatWebP, nil
	case isTIFF(data):
		return imaging.FormatTIFF, nil
	case bytes.HasPrefix(data, bmpSig):
		return imaging.FormatBMP, nil
	case bytes.HasPrefix(data, jxlBareSig):
		return imaging.FormatJXL, nil
	case isISOBMFF(data):
		if brand, ok := isoBMFFBrand(data); ok {
			switch {
			case brand == "avif" || brand == "avis":
				return imaging.FormatAVIF, nil
			case brand == "heic" || brand == "heix" || brand == "mif1":
				return imaging.FormatHEIC, nil
			case brand == "jxl ":
				return imaging.FormatJXL, nil
			}
		}
		return "", fmt.Errorf("%w: unrecognized ISO-BMFF brand", imaging.ErrUnsupportedFormat)
	case isSVG(data):
		return imaging.FormatSVG, nil
	case bytes.HasPrefix(data, gzipSig):
		if _, ok := sniffGzippedSVG(data); ok {
			return imaging.FormatSVGZ, nil
		}
		return "", fmt.Errorf("%w: gzip content is not SVG", imaging.ErrUnsupportedFormat)
	default:
		return "", fmt.Errorf("%w: no matching signature", imaging.ErrUnsupportedFormat)
	}
}

// isAPNG walks PNG chunks looking for acTL before the first IDAT.
// It assumes data already carries the PNG signature.
func isAPNG(data []byte) bool {
	offset := len(pngSignature)
	for offset+8 <= len(data) {
		length := binary.BigEndian.Uint32(data[offset : offset+4])
		chunkType := string(data[offset+4 : offset+8])

		switch chunkType {
		case "acTL":
			return true
		case "IDAT":
			return false
		}

		// Skip chunk data (length bytes) + 4-byte CRC.
		offset += 8 + int(length) + 4
	}
	return false
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && bytes.HasPrefix(data, riffSig) && bytes.Equal(data[8:12], webpSig)
}

func isTIFF(data []byte) bool {
	return bytes.HasPrefix(data, tiffLESig) || bytes.HasPrefix(data, tiffBESig)
}

// isISOBMFF reports whether data has an ftyp box at offset 4, the
// signature shared by AVIF/HEIC/JXL-in-ISOBMFF.
func isISOBMFF(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[4:8], ftypTag)
}

// isoBMFFBrand collects the major brand and every compatible brand of an
// ISO-BMFF ftyp box and returns the first codec brand among them, else
// "mif1" if present; otherwise it returns the major brand with ok false.
func isoBMFFBrand(data []byte) (string, bool) {
	if len(data) < 16 {
		return "", false
	}
	boxSize := int(binary.BigEndian.Uint32(data[0:4]))
	majorBrand := string(data[8:12])

	candidates := []string{majorBrand}

	// Compatible brands follow major_brand (4 bytes) + minor_version (4
	// bytes), each 4 bytes wide, until the end of the box.
	compatStart := 16
	end := boxSize
	if end <= 0 || end > len(data) {
		end = len(data)
	}
	for i := compatStart; i+4 <= end; i += 4 {
		candidates = append(candidates, string(data[i:i+4]))
	}

	// Two passes: the specific codec brands first, then the generic
	// "mif1" — an AVIF whose major brand is mif1 still lists avif among
	// its compatible brands and must not be read as HEIC.
	for _, brand := range candidates {
		switch brand {
		case "avif", "avis", "heic", "heix", "jxl ":
			return brand, true
		}
	}
	for _, brand := range candidates {
		if brand == "mif1" {
			return brand, true
		}
	}
	// No recognized brand among major/compatible; report the major brand
	// so the caller's switch can still fail with a useful message.
	return majorBrand, false
}

// isSVG reports whether data, after optional BOM/whitespace, begins with
// an XML prolog or an <svg> root element.
func isSVG(data []byte) bool {
	trimmed := bytes.TrimLeft(data, "\xEF\xBB\xBF \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<svg"))
}

// sniffGzippedSVG decompresses just enough of a gzip stream to check
// whether the payload is SVG.
func sniffGzippedSVG(data []byte) ([]byte, bool) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(zr, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, false
	}
	head = head[:n]
	return head, isSVG(head)
}

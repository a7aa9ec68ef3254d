package optimize

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"

	xbmp "golang.org/x/image/bmp"

	"github.com/amitray007/pare/internal/imaging"
)

// BMP candidate-enable quality thresholds.
const (
	bmpPaletteQualityCeiling = 70
	bmpRLEQualityCeiling     = 50
)

// BMPOptimizer re-encodes BMPs. BMP has no general-purpose CLI
// optimizer in the ecosystem, so every candidate is produced in-process:
// decode once with golang.org/x/image/bmp, then try a 24-bit re-save, a
// palette quantization, and (on top of the palette result) a hand-rolled
// RLE8 encode. The result contract discards whichever comes out larger.
type BMPOptimizer struct{}

func (o *BMPOptimizer) Optimize(ctx context.Context, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error) {
	img, err := xbmp.Decode(bytes.NewReader(data))
	if err != nil {
		return imaging.ApplyResultContract(imaging.FormatBMP, data, data, imaging.MethodNone), nil
	}

	candidates := map[string][]byte{}

	if out, err := encodeBMP24(img); err == nil {
		candidates["bmp-24bit"] = out
	}

	var paletted *image.Paletted
	if cfg.Quality < bmpPaletteQualityCeiling {
		paletted = quantizeToPalette(img)
		if out, err := encodeBMP8(paletted, false); err == nil {
			candidates["bmp-palette"] = out
		}

		if cfg.Quality < bmpRLEQualityCeiling {
			if out, err := encodeBMP8(paletted, true); err == nil {
				candidates["bmp-rle8"] = out
			}
		}
	}

	method, best, ok := imaging.BestCandidate(candidates)
	if !ok {
		return imaging.ApplyResultContract(imaging.FormatBMP, data, data, imaging.MethodNone), nil
	}
	return imaging.ApplyResultContract(imaging.FormatBMP, data, best, method), nil
}

// EncodeBMP24 is the exported form of encodeBMP24, reused by
// internal/estimate's generic-sample path to re-encode a
// downsampled BMP sample without duplicating the row-padding arithmetic.
func EncodeBMP24(img image.Image) ([]byte, error) {
	return encodeBMP24(img)
}

func quantizeToPalette(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	dst := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(dst, bounds, img, bounds.Min)
	return dst
}

const bmpFileHeaderSize = 14
const bmpInfoHeaderSize = 40

func bmpRowPadding(rowBytes int) int {
	pad := rowBytes % 4
	if pad == 0 {
		return 0
	}
	return 4 - pad
}

// encodeBMP24 writes an uncompressed BGR24 bitmap, bottom-up, padded to a
// 4-byte row stride per the Windows BMP spec.
func encodeBMP24(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	rowBytes := width * 3
	padding := bmpRowPadding(rowBytes)
	pixelDataSize := (rowBytes + padding) * height

	buf := new(bytes.Buffer)
	writeBMPFileHeader(buf, bmpFileHeaderSize+bmpInfoHeaderSize+pixelDataSize, bmpFileHeaderSize+bmpInfoHeaderSize)
	writeBMPInfoHeader(buf, width, height, 24, 0, pixelDataSize)

	pad := make([]byte, padding)
	for y := height - 1; y >= 0; y-- {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			buf.WriteByte(byte(b >> 8))
			buf.WriteByte(byte(g >> 8))
			buf.WriteByte(byte(r >> 8))
		}
		buf.Write(pad)
	}

	return buf.Bytes(), nil
}

// encodeBMP8 writes an 8-bit paletted bitmap, optionally RLE8-compressed
// (BI_RLE8), bottom-up.
func encodeBMP8(img *image.Paletted, rle bool) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	paletteEntries := make([]byte, 256*4)
	for i := 0; i < 256; i++ {
		var c color.RGBA
		if i < len(img.Palette) {
			r, g, b, _ := img.Palette[i].RGBA()
			c = color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
		}
		paletteEntries[i*4+0] = c.B
		paletteEntries[i*4+1] = c.G
		paletteEntries[i*4+2] = c.R
		paletteEntries[i*4+3] = 0
	}

	var pixelData []byte
	compression := uint32(0)
	if rle {
		pixelData = encodeRLE8(img, width, height)
		compression = 1
	} else {
		rowBytes := width
		padding := bmpRowPadding(rowBytes)
		pad := make([]byte, padding)
		buf := new(bytes.Buffer)
		for y := height - 1; y >= 0; y-- {
			rowStart := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			buf.Write(img.Pix[rowStart : rowStart+width])
			buf.Write(pad)
		}
		pixelData = buf.Bytes()
	}

	headerSize := bmpFileHeaderSize + bmpInfoHeaderSize + len(paletteEntries)
	buf := new(bytes.Buffer)
	writeBMPFileHeader(buf, headerSize+len(pixelData), headerSize)
	writeBMPInfoHeader(buf, width, height, 8, compression, len(pixelData))
	buf.Write(paletteEntries)
	buf.Write(pixelData)

	return buf.Bytes(), nil
}

// encodeRLE8 runs Windows BI_RLE8 encoding: each row ends in an 0x00 0x00
// end-of-line marker and a final 0x00 0x01 ends the bitmap. Runs longer
// than 255 pixels are split across multiple run records.
func encodeRLE8(img *image.Paletted, width, height int) []byte {
	buf := new(bytes.Buffer)

	for y := height - 1; y >= 0; y-- {
		rowStart := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		row := img.Pix[rowStart : rowStart+width]

		x := 0
		for x < width {
			runVal := row[x]
			runLen := 1
			for x+runLen < width && row[x+runLen] == runVal && runLen < 255 {
				runLen++
			}
			buf.WriteByte(byte(runLen))
			buf.WriteByte(runVal)
			x += runLen
		}

		buf.WriteByte(0x00)
		buf.WriteByte(0x00) // end of line
	}

	buf.WriteByte(0x00)
	buf.WriteByte(0x01) // end of bitmap

	return buf.Bytes()
}

func writeBMPFileHeader(buf *bytes.Buffer, fileSize, pixelDataOffset int) {
	buf.WriteByte('B')
	buf.WriteByte('M')
	binary.Write(buf, binary.LittleEndian, uint32(fileSize))
	binary.Write(buf, binary.LittleEndian, uint32(0)) // reserved
	binary.Write(buf, binary.LittleEndian, uint32(pixelDataOffset))
}

func writeBMPInfoHeader(buf *bytes.Buffer, width, height, bitsPerPixel int, compression uint32, imageSize int) {
	binary.Write(buf, binary.LittleEndian, uint32(bmpInfoHeaderSize))
	binary.Write(buf, binary.LittleEndian, int32(width))
	binary.Write(buf, binary.LittleEndian, int32(height))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // planes
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerPixel))
	binary.Write(buf, binary.LittleEndian, compression)
	binary.Write(buf, binary.LittleEndian, uint32(imageSize))
	binary.Write(buf, binary.LittleEndian, int32(2835)) // ~72 DPI
	binary.Write(buf, binary.LittleEndian, int32(2835))
	binary.Write(buf, binary.LittleEndian, uint32(0)) // colors used: all
	binary.Write(buf, binary.LittleEndian, uint32(0)) // important colors: all
}

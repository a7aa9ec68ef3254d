package metadata_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metadata"
)

func pngChunk(chunkType string, data []byte) []byte {
	buf := new(bytes.Buffer)
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf.Write(length)
	buf.WriteString(chunkType)
	buf.Write(data)
	buf.Write([]byte{0xAB, 0xCD, 0xEF, 0x01})
	return buf.Bytes()
}

func buildPNGWithTextChunks() []byte {
	buf := new(bytes.Buffer)
	buf.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	buf.Write(pngChunk("IHDR", make([]byte, 13)))
	buf.Write(pngChunk("iCCP", []byte("profile-bytes")))
	buf.Write(pngChunk("tEXt", []byte("Author\x00Someone")))
	buf.Write(pngChunk("pHYs", make([]byte, 9)))
	buf.Write(pngChunk("iTXt", []byte("Comment\x00\x00\x00\x00stuff")))
	buf.Write(pngChunk("zTXt", []byte("Copyright\x00compressed")))
	buf.Write(pngChunk("IDAT", []byte{0x01, 0x02, 0x03}))
	buf.Write(pngChunk("IEND", nil))
	return buf.Bytes()
}

func TestStripPNGDropsTextChunksKeepsRest(t *testing.T) {
	t.Parallel()

	out, err := metadata.Strip(imaging.FormatPNG, buildPNGWithTextChunks(), nil)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "tEXt")
	assert.NotContains(t, string(out), "iTXt")
	assert.NotContains(t, string(out), "zTXt")
	assert.Contains(t, string(out), "IHDR")
	assert.Contains(t, string(out), "iCCP")
	assert.Contains(t, string(out), "pHYs")
	assert.Contains(t, string(out), "IDAT")
	assert.Contains(t, string(out), "IEND")
}

func TestStripPNGTruncatedChunk(t *testing.T) {
	t.Parallel()

	data := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
		0x00, 0x00, 0xFF, 0xFF, 'I', 'H', 'D', 'R', 0x01, 0x02)

	_, err := metadata.Strip(imaging.FormatPNG, data, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrOptimizationFailed))
}

func TestStripJPEGTruncatedSegment(t *testing.T) {
	t.Parallel()

	data := []byte{0xFF, 0xD8, 0xFF, 0xE1, 0xFF, 0xFF, 0x01}

	_, err := metadata.Strip(imaging.FormatJPEG, data, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrOptimizationFailed))
}

func TestStripPNGInvalidSignature(t *testing.T) {
	t.Parallel()

	_, err := metadata.Strip(imaging.FormatPNG, []byte("not a png"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrOptimizationFailed))
}

func exifSegmentWithOrientation(orientation uint16) []byte {
	tiff := new(bytes.Buffer)
	tiff.WriteString("Exif\x00\x00")
	tiff.WriteString("MM")
	tiff.Write([]byte{0x00, 0x2A})
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x08})
	tiff.Write([]byte{0x00, 0x02}) // two entries: orientation + GPS-ish junk tag
	tiff.Write([]byte{0x01, 0x12})
	tiff.Write([]byte{0x00, 0x03})
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x01})
	binary.Write(tiff, binary.BigEndian, orientation)
	tiff.Write([]byte{0x00, 0x00})
	// second bogus entry (e.g. Make tag 0x010F), should be dropped by the
	// minimal re-emission regardless of its content.
	tiff.Write([]byte{0x01, 0x0F})
	tiff.Write([]byte{0x00, 0x02})
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x05})
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x00})
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x00})

	segment := new(bytes.Buffer)
	segment.Write([]byte{0xFF, 0xE1})
	length := uint16(2 + tiff.Len())
	binary.Write(segment, binary.BigEndian, length)
	segment.Write(tiff.Bytes())
	return segment.Bytes()
}

func buildJPEG(withOrientation bool, withJFIF bool) []byte {
	buf := new(bytes.Buffer)
	buf.Write([]byte{0xFF, 0xD8}) // SOI

	if withJFIF {
		jfif := []byte{0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00}
		buf.Write(jfif)
	}
	if withOrientation {
		buf.Write(exifSegmentWithOrientation(6))
	}

	// Minimal DQT segment, kept verbatim.
	buf.Write([]byte{0xFF, 0xDB, 0x00, 0x05, 0x00, 0x01})

	// SOS + fake entropy-coded scan data.
	buf.Write([]byte{0xFF, 0xDA, 0x00, 0x02})
	buf.Write([]byte{0xAA, 0xBB, 0xCC})
	buf.Write([]byte{0xFF, 0xD9}) // EOI
	return buf.Bytes()
}

func TestStripJPEGPreservesOrientationDropsJFIF(t *testing.T) {
	t.Parallel()

	out, err := metadata.Strip(imaging.FormatJPEG, buildJPEG(true, true), nil)
	require.NoError(t, err)

	assert.NotContains(t, string(out), "JFIF")
	assert.Contains(t, string(out), "Exif")
	assert.Contains(t, string(out), "\xAA\xBB\xCC")
}

func TestStripJPEGDropsEXIFWithoutOrientation(t *testing.T) {
	t.Parallel()

	// APP1 segment with an unrelated structure (no orientation tag).
	buf := new(bytes.Buffer)
	buf.Write([]byte{0xFF, 0xD8})
	tiff := new(bytes.Buffer)
	tiff.WriteString("Exif\x00\x00")
	tiff.WriteString("MM")
	tiff.Write([]byte{0x00, 0x2A})
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x08})
	tiff.Write([]byte{0x00, 0x00}) // zero entries
	tiff.Write([]byte{0x00, 0x00, 0x00, 0x00})
	segment := new(bytes.Buffer)
	segment.Write([]byte{0xFF, 0xE1})
	binary.Write(segment, binary.BigEndian, uint16(2+tiff.Len()))
	segment.Write(tiff.Bytes())
	buf.Write(segment.Bytes())
	buf.Write([]byte{0xFF, 0xDA, 0x00, 0x02})
	buf.Write([]byte{0x01})
	buf.Write([]byte{0xFF, 0xD9})

	out, err := metadata.Strip(imaging.FormatJPEG, buf.Bytes(), nil)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "Exif")
}

func TestStripJPEGInvalidSOI(t *testing.T) {
	t.Parallel()

	_, err := metadata.Strip(imaging.FormatJPEG, []byte("not a jpeg"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrOptimizationFailed))
}

type fakeStripper struct {
	called bool
	out    []byte
	err    error
}

func (f *fakeStripper) StripMetadata(data []byte) ([]byte, error) {
	f.called = true
	return f.out, f.err
}

func TestStripDelegatesToCodecStripperForWebP(t *testing.T) {
	t.Parallel()

	fs := &fakeStripper{out: []byte("stripped")}
	out, err := metadata.Strip(imaging.FormatWebP, []byte("original"), fs)
	require.NoError(t, err)
	assert.True(t, fs.called)
	assert.Equal(t, "stripped", string(out))
}

func TestStripPassthroughForGIFAndBMP(t *testing.T) {
	t.Parallel()

	for _, format := range []imaging.Format{imaging.FormatGIF, imaging.FormatBMP, imaging.FormatSVG} {
		out, err := metadata.Strip(format, []byte("original"), nil)
		require.NoError(t, err)
		assert.Equal(t, "original", string(out))
	}
}

func TestStripUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := metadata.Strip(imaging.Format("nonsense"), []byte("x"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrUnsupportedFormat))
}

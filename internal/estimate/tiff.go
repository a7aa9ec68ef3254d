package estimate

import (
	"bytes"
	"image"

	xtiff "golang.org/x/image/tiff"
)

// encodeTIFF writes img as an uncompressed TIFF. Split into its own file
// so the golang.org/x/image/tiff import only needs to be read alongside
// the one caller that uses it.
func encodeTIFF(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := xtiff.Encode(buf, img, &xtiff.Options{Compression: xtiff.Uncompressed}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package optimize

import "github.com/amitray007/pare/internal/imaging"

// Codec is the in-process re-encode seam every optimizer that needs a
// non-CLI candidate depends on, implemented by a libvips/bimg adapter
// (codec_bimg.go). Keeping this as an interface (rather than
// importing bimg directly from every optimizer file) lets the cgo-gated
// implementation live in its own file while every decision-tree file here
// stays buildable without cgo.
type Codec interface {
	// Reencode decodes data and re-emits it as format at the given
	// quality (ignored for lossless targets), honoring progressive mode
	// for JPEG output.
	Reencode(data []byte, format imaging.Format, quality int, progressive bool) ([]byte, error)
}

package optimize

import (
	"context"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/metadata"
)

// TIFFVariant is the compression scheme a TIFFCodec candidate targets.
type TIFFVariant int

const (
	TIFFDeflate TIFFVariant = iota
	TIFFLZW
	TIFFJPEGInTIFF
)

// TIFFCodec extends Codec with TIFF's compression-scheme choice, which a
// plain quality knob can't express.
type TIFFCodec interface {
	ReencodeTIFFVariant(data []byte, variant TIFFVariant, quality int) ([]byte, error)
}

// tiffJPEGQualityCeiling is the quality threshold below which the
// JPEG-in-TIFF candidate is even attempted.
const tiffJPEGQualityCeiling = 70

// TIFFOptimizer decodes once and races three compression schemes.
type TIFFOptimizer struct {
	codec         Codec
	codecStripper metadata.Stripper
}

func (o *TIFFOptimizer) Optimize(ctx context.Context, data []byte, cfg imaging.OptimizationConfig) (imaging.OptimizeResult, error) {
	// A strip failure is not fatal: the candidates race over the
	// original bytes instead.
	stripped := data
	if cfg.StripMetadata {
		if out, err := metadata.Strip(imaging.FormatTIFF, data, o.codecStripper); err == nil {
			stripped = out
		}
	}

	tiffCodec, ok := o.codec.(TIFFCodec)
	if !ok {
		return imaging.ApplyResultContract(imaging.FormatTIFF, data, stripped, imaging.MethodNone), nil
	}

	variants := map[string]TIFFVariant{
		"deflate": TIFFDeflate,
		"lzw":     TIFFLZW,
	}
	if cfg.Quality < tiffJPEGQualityCeiling {
		variants["jpeg-in-tiff"] = TIFFJPEGInTIFF
	}

	type candidateResult struct {
		method string
		data   []byte
	}
	results := make(chan candidateResult, len(variants))

	for method, variant := range variants {
		method, variant := method, variant
		go func() {
			out, err := tiffCodec.ReencodeTIFFVariant(stripped, variant, cfg.Quality)
			if err != nil {
				results <- candidateResult{}
				return
			}
			results <- candidateResult{method: method, data: out}
		}()
	}

	candidates := map[string][]byte{}
	for i := 0; i < len(variants); i++ {
		r := <-results
		if r.data != nil {
			candidates[r.method] = r.data
		}
	}

	method, best, ok := imaging.BestCandidate(candidates)
	if !ok {
		return imaging.ApplyResultContract(imaging.FormatTIFF, data, stripped, imaging.MethodNone), nil
	}
	return imaging.ApplyResultContract(imaging.FormatTIFF, data, best, method), nil
}

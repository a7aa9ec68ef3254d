package imaging

import "math"

// OptimizeResult is the outcome of a successful optimize call.
// "Successful" here means the contract in ApplyResultContract was
// honored, not that a candidate necessarily improved on the input —
// method "none" with reduction 0 is still success.
type OptimizeResult struct {
	Success          bool
	OriginalSize     int
	OptimizedSize    int
	ReductionPercent float64
	Format           Format
	Method           string
	OptimizedBytes   []byte
	Message          string
}

// MethodNone is the method label used when no candidate improved on the
// input, or when every candidate for a format failed.
const MethodNone = "none"

// ApplyResultContract is the sole enforcer of the output-never-larger
// guarantee. Every optimizer, and the
// estimator's exact path, must route their chosen candidate through this
// before returning.
func ApplyResultContract(format Format, original, candidate []byte, method string) OptimizeResult {
	if len(candidate) >= len(original) {
		return OptimizeResult{
			Success:          true,
			OriginalSize:     len(original),
			OptimizedSize:    len(original),
			ReductionPercent: 0,
			Format:           format,
			Method:           MethodNone,
			OptimizedBytes:   original,
		}
	}

	reduction := ReductionPercent(len(original), len(candidate))
	return OptimizeResult{
		Success:          true,
		OriginalSize:     len(original),
		OptimizedSize:    len(candidate),
		ReductionPercent: reduction,
		Format:           format,
		Method:           method,
		OptimizedBytes:   candidate,
	}
}

// ReductionPercent computes round((1 - optimized/original) * 100, 1),
// to a single decimal place. originalSize of 0 is
// treated as 0% reduction rather than dividing by zero.
func ReductionPercent(originalSize, optimizedSize int) float64 {
	if originalSize <= 0 {
		return 0
	}
	raw := (1 - float64(optimizedSize)/float64(originalSize)) * 100
	if raw < 0 {
		return 0
	}
	return math.Round(raw*10) / 10
}

// BestCandidate picks the smallest of a set of (method, bytes) candidates,
// ignoring any entry with nil bytes (a failed candidate). It returns
// ok=false when every candidate failed, in which case the caller must
// fall back to MethodNone with the original bytes rather than calling
// ApplyResultContract with an empty slice.
func BestCandidate(candidates map[string][]byte) (method string, data []byte, ok bool) {
	for name, bytes := range candidates {
		if bytes == nil {
			continue
		}
		if !ok || len(bytes) < len(data) {
			method, data, ok = name, bytes, true
		}
	}
	return method, data, ok
}

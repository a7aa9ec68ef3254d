package imaging

import "errors"

// Sentinel errors for the optimization/estimation core. Wrap with
// fmt.Errorf("...: %w", err) for context; compare with errors.Is.
var (
	// ErrUnsupportedFormat is raised when the format detector finds no
	// matching magic-byte signature.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrInvalidConfig is raised when an OptimizationConfig field is out
	// of range (e.g. quality outside [1, 100]).
	ErrInvalidConfig = errors.New("invalid optimization config")

	// ErrInvalidPreset is raised when a preset name is not in the closed
	// set {high, medium, low}.
	ErrInvalidPreset = errors.New("invalid preset")

	// ErrToolTimeout is raised when a subprocess encoder exceeds its
	// configured timeout and is killed.
	ErrToolTimeout = errors.New("tool timed out")

	// ErrOptimizationFailed is raised only when every candidate for a
	// format failed AND metadata-strip/no-op could not produce output
	// bytes at all (e.g. a corrupt container that cannot even be copied
	// through). A single candidate failing is not this error; see the
	// optimizer dispatch's "method=none" fallback.
	ErrOptimizationFailed = errors.New("optimization failed")

	// ErrOverloaded is raised when the compression gate's queue is full.
	ErrOverloaded = errors.New("compression gate overloaded")

	// ErrCancelled is raised when the caller's context is cancelled
	// before or during optimization/estimation.
	ErrCancelled = errors.New("request cancelled")
)

// ErrorCode is the HTTP-status-shaped classification of a core error, for
// a transport layer to map onto a response code. The core itself never
// produces an HTTP response; this only documents the intended mapping.
type ErrorCode int

const (
	// CodeNone is returned when err does not match any known sentinel.
	CodeNone ErrorCode = iota
	CodeUnsupportedMediaType
	CodeBadRequest
	CodeServiceUnavailable
	CodeServerError
)

// CodeOf classifies err against the sentinel kinds above. Callers outside
// this module (a future HTTP handler, a job-queue error handler) use this
// instead of re-deriving the mapping from error strings.
func CodeOf(err error) (ErrorCode, bool) {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return CodeUnsupportedMediaType, true
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidPreset):
		return CodeBadRequest, true
	case errors.Is(err, ErrOverloaded):
		return CodeServiceUnavailable, true
	case errors.Is(err, ErrToolTimeout), errors.Is(err, ErrOptimizationFailed):
		return CodeServerError, true
	default:
		return CodeNone, false
	}
}

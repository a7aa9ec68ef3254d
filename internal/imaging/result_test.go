package imaging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amitray007/pare/internal/imaging"
)

func TestApplyResultContractNeverLarger(t *testing.T) {
	t.Parallel()

	original := make([]byte, 1000)
	larger := make([]byte, 1200)

	result := imaging.ApplyResultContract(imaging.FormatPNG, original, larger, "oxipng")

	assert.Equal(t, imaging.MethodNone, result.Method)
	assert.Equal(t, len(original), result.OptimizedSize)
	assert.Equal(t, float64(0), result.ReductionPercent)
	assert.Equal(t, original, result.OptimizedBytes)
}

func TestApplyResultContractImprovement(t *testing.T) {
	t.Parallel()

	original := make([]byte, 1000)
	smaller := make([]byte, 400)

	result := imaging.ApplyResultContract(imaging.FormatJPEG, original, smaller, "jpegli")

	assert.Equal(t, "jpegli", result.Method)
	assert.Equal(t, 400, result.OptimizedSize)
	assert.Equal(t, 60.0, result.ReductionPercent)
}

func TestReductionPercentRounding(t *testing.T) {
	t.Parallel()

	// 700/1000 -> 30.0% reduction exactly.
	assert.Equal(t, 30.0, imaging.ReductionPercent(1000, 700))
	// Zero-size original never divides by zero.
	assert.Equal(t, 0.0, imaging.ReductionPercent(0, 0))
	// Degenerate candidate larger than original clamps to zero, not negative.
	assert.Equal(t, 0.0, imaging.ReductionPercent(100, 150))
}

func TestBestCandidateIgnoresFailures(t *testing.T) {
	t.Parallel()

	candidates := map[string][]byte{
		"a": nil,
		"b": make([]byte, 50),
		"c": make([]byte, 20),
	}

	method, data, ok := imaging.BestCandidate(candidates)
	assert.True(t, ok)
	assert.Equal(t, "c", method)
	assert.Len(t, data, 20)
}

func TestBestCandidateAllFailed(t *testing.T) {
	t.Parallel()

	_, _, ok := imaging.BestCandidate(map[string][]byte{"a": nil, "b": nil})
	assert.False(t, ok)
}

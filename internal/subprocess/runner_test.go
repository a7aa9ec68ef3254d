package subprocess_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amitray007/pare/internal/imaging"
	"github.com/amitray007/pare/internal/subprocess"
)

func TestRunToolNotFound(t *testing.T) {
	t.Parallel()

	_, err := subprocess.Run(context.Background(), subprocess.Spec{
		Tool: "definitely-not-a-real-binary-xyz",
	}, []byte("input"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrOptimizationFailed))
}

func TestRunEchoesStdinToStdout(t *testing.T) {
	t.Parallel()

	result, err := subprocess.Run(context.Background(), subprocess.Spec{
		Tool: "cat",
	}, []byte("hello optimizer"))

	require.NoError(t, err)
	assert.Equal(t, "hello optimizer", string(result.Stdout))
	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.Skipped)
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	_, err := subprocess.Run(context.Background(), subprocess.Spec{
		Tool:    "sleep",
		Args:    []string{"5"},
		Timeout: 50 * time.Millisecond,
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrToolTimeout))
}

func TestRunAllowedExitCodeTreatedAsSkip(t *testing.T) {
	t.Parallel()

	// `sh -c 'exit 99'` mimics pngquant's exit code for a quality floor
	// it could not meet.
	result, err := subprocess.Run(context.Background(), subprocess.Spec{
		Tool:             "sh",
		Args:             []string{"-c", "exit 99"},
		AllowedExitCodes: []int{99},
	}, nil)

	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 99, result.ExitCode)
}

func TestRunDisallowedExitCodeFails(t *testing.T) {
	t.Parallel()

	_, err := subprocess.Run(context.Background(), subprocess.Spec{
		Tool: "sh",
		Args: []string{"-c", "exit 7"},
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, imaging.ErrOptimizationFailed))
}

func TestAvailable(t *testing.T) {
	t.Parallel()

	assert.True(t, subprocess.Available("sh"))
	assert.False(t, subprocess.Available("definitely-not-a-real-binary-xyz"))
}

package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmdeploy/llmdeploy/internal/logging"
)

func TestOutputTrimmed(t *testing.T) {
	r := New(logging.Discard())
	out, err := r.Output(context.Background(), "sh", "-c", "echo '  hello  '")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOutputCombinesStderr(t *testing.T) {
	r := New(logging.Discard())
	out, err := r.Output(context.Background(), "sh", "-c", "echo oops 1>&2")
	require.NoError(t, err)
	assert.Equal(t, "oops", out)
}

func TestOutputExitError(t *testing.T) {
	r := New(logging.Discard())
	out, err := r.Output(context.Background(), "sh", "-c", "echo bad; exit 3")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "bad", out)
	assert.Contains(t, err.Error(), "exited with code 3")
}

func TestOutputTimeout(t *testing.T) {
	r := New(logging.Discard())
	r.Timeout = 50 * time.Millisecond
	_, err := r.Output(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestOutputRespectsCallerDeadline(t *testing.T) {
	r := New(logging.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := r.Output(ctx, "sleep", "5")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOutputMissingBinary(t *testing.T) {
	r := New(logging.Discard())
	_, err := r.Output(context.Background(), "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
}

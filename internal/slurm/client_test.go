package slurm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmdeploy/llmdeploy/internal/logging"
	"github.com/llmdeploy/llmdeploy/internal/shell"
)

// fakeRunner replays scripted responses and records every invocation.
type fakeRunner struct {
	responses []fakeResponse
	calls     [][]string
}

type fakeResponse struct {
	out string
	err error
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if len(f.responses) == 0 {
		return "", nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp.out, resp.err
}

func newTestClient(runner *fakeRunner) *Client {
	return NewClient(runner, logging.Discard())
}

func TestSubmit(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{{out: "Submitted batch job 12345"}}}
	c := newTestClient(runner)

	id, err := c.Submit(context.Background(), "test.sh")
	require.NoError(t, err)
	assert.Equal(t, "12345", id)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"sbatch", "test.sh"}, runner.calls[0])
}

func TestSubmitNoMarker(t *testing.T) {
	c := newTestClient(&fakeRunner{responses: []fakeResponse{{out: "asdf"}}})

	_, err := c.Submit(context.Background(), "test.sh")
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Contains(t, err.Error(), "could not submit")
}

func TestSubmitCommandFailure(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{out: "sbatch: error: invalid partition", err: &shell.ExitError{Cmd: "sbatch", Code: 1}},
	}}
	c := newTestClient(runner)

	_, err := c.Submit(context.Background(), "test.sh")
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
}

func TestSubmitEmptyID(t *testing.T) {
	c := newTestClient(&fakeRunner{responses: []fakeResponse{{out: "Submitted batch job"}}})

	_, err := c.Submit(context.Background(), "test.sh")
	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
}

func TestQueryStatus(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{{out: "RUNNING\nRUNNING\nRUNNINGJKJ"}}}
	c := newTestClient(runner)

	raw, state, err := c.QueryStatus(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "RUNNING", raw)
	assert.Equal(t, StateRunning, state)
	assert.Equal(t, []string{"sacct", "-n", "-j", "12345", "--format=State", "-P"}, runner.calls[0])
}

func TestQueryStatusEmpty(t *testing.T) {
	c := newTestClient(&fakeRunner{responses: []fakeResponse{{out: ""}}})

	raw, state, err := c.QueryStatus(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "", raw)
	assert.Equal(t, StateUnknown, state)
}

func TestQueryStatusError(t *testing.T) {
	c := newTestClient(&fakeRunner{responses: []fakeResponse{{err: errors.New("boom")}}})

	_, _, err := c.QueryStatus(context.Background(), "12345")
	require.Error(t, err)
}

func TestQueryStartEstimate(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{{out: "2021-10-05T17:05:00\nasdf"}}}
	c := newTestClient(runner)

	estimate, err := c.QueryStartEstimate(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "2021-10-05T17:05:00", estimate)
	assert.Equal(t, []string{"sacct", "-n", "-j", "12345", "--format=Start", "-P"}, runner.calls[0])
}

func TestQueryNode(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{{out: "della-l01g02\nasdf"}}}
	c := newTestClient(runner)

	node, err := c.QueryNode(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "della-l01g02", node)
	assert.Equal(t, []string{"squeue", "-j", "12345", "--noheader", "--format=%N"}, runner.calls[0])
}

func TestCancelSwallowsErrors(t *testing.T) {
	runner := &fakeRunner{responses: []fakeResponse{
		{out: "scancel: error: Invalid job id", err: &shell.ExitError{Cmd: "scancel", Code: 1}},
	}}
	c := newTestClient(runner)

	// Cancelling a dead job must not panic or error.
	c.Cancel(context.Background(), "12345")
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"scancel", "12345"}, runner.calls[0])
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "a", firstLine("a\nb\nc"))
	assert.Equal(t, "a", firstLine(" a "))
	assert.Equal(t, "", firstLine(""))
	assert.False(t, strings.Contains(firstLine("x\ny"), "\n"))
}

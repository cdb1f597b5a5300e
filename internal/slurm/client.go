// Package slurm wraps the cluster batch system's command line tools: job
// submission, status queries and cancellation, plus the wait-until-running
// protocol layered on top of them.
package slurm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/llmdeploy/llmdeploy/internal/shell"
)

// submitMarker precedes the job id in sbatch's acknowledgement line.
const submitMarker = "Submitted batch job"

// SubmissionError reports that the scheduler rejected or did not acknowledge
// a submission.
type SubmissionError struct {
	Output string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not submit job: %v", e.Err)
	}
	return fmt.Sprintf("could not submit job: no %q marker in output %q", submitMarker, e.Output)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Client issues scheduler commands through a bounded-time Runner.
type Client struct {
	runner shell.Runner
	logger *logrus.Logger
}

func NewClient(runner shell.Runner, logger *logrus.Logger) *Client {
	return &Client{runner: runner, logger: logger}
}

// Submit hands a batch script to sbatch and extracts the new job id from its
// acknowledgement. The id is the last field of the marker line.
func (c *Client) Submit(ctx context.Context, scriptPath string) (string, error) {
	out, err := c.runner.Output(ctx, "sbatch", scriptPath)
	if err != nil {
		return "", &SubmissionError{Output: out, Err: err}
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, submitMarker) {
			continue
		}
		id := strings.TrimSpace(strings.TrimPrefix(line, submitMarker))
		if fields := strings.Fields(id); len(fields) > 0 {
			id = fields[0]
		}
		if id == "" {
			break
		}
		c.logger.Infof("submitted batch job %s", id)
		return id, nil
	}
	return "", &SubmissionError{Output: out}
}

// QueryStatus returns the job's raw status string and its classification.
// An empty sacct response means the scheduler has no record yet.
func (c *Client) QueryStatus(ctx context.Context, jobID string) (string, JobState, error) {
	out, err := c.runner.Output(ctx, "sacct", "-n", "-j", jobID, "--format=State", "-P")
	if err != nil {
		return "", StateUnknown, fmt.Errorf("query status of job %s: %w", jobID, err)
	}
	if out == "" {
		return "", StateUnknown, nil
	}
	raw := firstLine(out)
	return raw, Classify(raw), nil
}

// QueryStartEstimate returns the scheduler's estimated start time as an
// opaque human-readable string. Best effort, for progress reporting only.
func (c *Client) QueryStartEstimate(ctx context.Context, jobID string) (string, error) {
	out, err := c.runner.Output(ctx, "sacct", "-n", "-j", jobID, "--format=Start", "-P")
	if err != nil {
		return "", fmt.Errorf("query start estimate of job %s: %w", jobID, err)
	}
	return firstLine(out), nil
}

// QueryNode resolves the compute node the job runs on; blank until the job
// is actually running.
func (c *Client) QueryNode(ctx context.Context, jobID string) (string, error) {
	out, err := c.runner.Output(ctx, "squeue", "-j", jobID, "--noheader", "--format=%N")
	if err != nil {
		return "", fmt.Errorf("query node of job %s: %w", jobID, err)
	}
	return firstLine(out), nil
}

// Cancel asks the scheduler to kill the job. Cancelling an already-terminated
// job is a no-op; scancel failures are logged, never returned, so Cancel is
// safe to call from cleanup paths.
func (c *Client) Cancel(ctx context.Context, jobID string) {
	c.logger.Warnf("cancelling job %s, please wait", jobID)
	if _, err := c.runner.Output(ctx, "scancel", jobID); err != nil {
		var exitErr *shell.ExitError
		if errors.As(err, &exitErr) {
			c.logger.Debugf("scancel %s: %v", jobID, err)
			return
		}
		c.logger.Warnf("scancel %s: %v", jobID, err)
		return
	}
	c.logger.Debugf("cancelled job %s", jobID)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

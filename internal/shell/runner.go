// Package shell runs external commands with a hard deadline. Every scheduler
// query goes through here so a wedged command surfaces as an error instead of
// hanging the session.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single external command invocation.
const DefaultTimeout = 30 * time.Second

// Runner executes an external command and returns its combined trimmed output.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// ExitError reports a command that ran but exited non-zero, keeping the
// output around for diagnostics.
type ExitError struct {
	Cmd    string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Cmd, e.Code, strings.TrimSpace(e.Output))
}

// ExecRunner shells out via os/exec, applying Timeout when the caller's
// context has no earlier deadline.
type ExecRunner struct {
	Timeout time.Duration
	Logger  *logrus.Logger
}

func New(logger *logrus.Logger) *ExecRunner {
	return &ExecRunner{Timeout: DefaultTimeout, Logger: logger}
}

func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if r.Logger != nil {
		r.Logger.Debugf("running %s %s", name, strings.Join(args, " "))
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	out := strings.TrimSpace(buf.String())
	if r.Logger != nil {
		r.Logger.Debugf("%s output: %q", name, out)
	}
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, fmt.Errorf("%s timed out: %w", name, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{Cmd: name, Code: exitErr.ExitCode(), Output: out}
	}
	return out, fmt.Errorf("run %s: %w", name, err)
}

package slurm

import (
	"context"
	"fmt"
	"time"
)

// Feedback receives operator-facing progress messages from the wait protocol.
// The CLI routes it to the logger; the TUI renders it in place.
type Feedback interface {
	Info(msg string)
	Error(msg string)
}

// StatusQuerier is the slice of Client the Waiter needs.
type StatusQuerier interface {
	QueryStatus(ctx context.Context, jobID string) (string, JobState, error)
	QueryStartEstimate(ctx context.Context, jobID string) (string, error)
}

const (
	// DefaultPollInterval is how often the scheduler is asked for status.
	DefaultPollInterval = 10 * time.Second
	// DefaultUnknownGrace is how long an unknown status is tolerated after
	// submission before it is treated as terminal. Accounting lag on the
	// scheduler side routinely produces empty answers for fresh jobs.
	DefaultUnknownGrace = 30 * time.Second
)

// Waiter blocks until a job is confirmed running or has terminally failed.
// A single RUNNING reading is not trusted: jobs that crash right after start
// briefly report RUNNING, so confirmation requires two consecutive readings
// one poll interval apart.
type Waiter struct {
	Client       StatusQuerier
	Feedback     Feedback
	PollInterval time.Duration
	UnknownGrace time.Duration

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewWaiter(client StatusQuerier, fb Feedback) *Waiter {
	return &Waiter{
		Client:       client,
		Feedback:     fb,
		PollInterval: DefaultPollInterval,
		UnknownGrace: DefaultUnknownGrace,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// Wait polls until the job is confirmed running (true), has terminally failed
// or completed (false), or ctx is cancelled.
func (w *Waiter) Wait(ctx context.Context, jobID string) (bool, error) {
	now := w.now
	if now == nil {
		now = time.Now
	}
	sleep := w.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	w.Feedback.Info(fmt.Sprintf("Waiting for job %s to start...", jobID))
	start := now()
	runningSeen := 0
	for {
		_, state, err := w.Client.QueryStatus(ctx, jobID)
		if err != nil {
			return false, err
		}
		switch state {
		case StateRunning:
			if runningSeen > 0 {
				return true, nil
			}
			runningSeen++
			w.Feedback.Info(fmt.Sprintf(
				"Job %s is running. Waiting one more interval to make sure it doesn't immediately fail.", jobID))
		case StatePending:
			runningSeen = 0
			estimate, err := w.Client.QueryStartEstimate(ctx, jobID)
			if err != nil {
				estimate = "unknown"
			}
			w.Feedback.Info(fmt.Sprintf("Job %s is pending. Estimated start time %s.", jobID, estimate))
		case StateFailed:
			w.Feedback.Error(fmt.Sprintf("Job %s failed.", jobID))
			return false, nil
		case StateCompleted:
			w.Feedback.Info(fmt.Sprintf("Job %s already completed. Please start a new one.", jobID))
			return false, nil
		case StateUnknown:
			runningSeen = 0
			if now().Sub(start) < w.UnknownGrace {
				w.Feedback.Info(fmt.Sprintf("Job %s status unknown. Please wait a bit longer.", jobID))
			} else {
				w.Feedback.Error(fmt.Sprintf("Job %s status unknown. Please report this.", jobID))
				return false, nil
			}
		}
		if err := sleep(ctx, w.PollInterval); err != nil {
			return false, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package session drives one deployment end to end: submit the batch job,
// wait for the scheduler to start it, open a tunnel to the compute node,
// persist the handoff record and monitor the job until it ends or the
// operator interrupts. All acquired resources are torn down through a cleanup
// ledger no matter which exit path is taken.
package session

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/llmdeploy/llmdeploy/internal/cleanup"
	"github.com/llmdeploy/llmdeploy/internal/slurm"
	"github.com/llmdeploy/llmdeploy/internal/tunnel"
)

// Exit codes are stable so operators and wrapper scripts can disambiguate
// why a deployment ended.
const (
	ExitOK             = 0
	ExitStartFailed    = 10
	ExitTunnelDied     = 11
	ExitJobAbnormalEnd = 12
	ExitSubmitFailed   = 13
)

// Scheduler is the slice of the slurm client the session depends on.
type Scheduler interface {
	Submit(ctx context.Context, scriptPath string) (string, error)
	QueryStatus(ctx context.Context, jobID string) (string, slurm.JobState, error)
	QueryStartEstimate(ctx context.Context, jobID string) (string, error)
	QueryNode(ctx context.Context, jobID string) (string, error)
	Cancel(ctx context.Context, jobID string)
}

// Handle is the tunnel surface the monitor loop needs.
type Handle interface {
	Alive() bool
	Close()
}

// Options configure a deployment session.
type Options struct {
	Script      slurm.ScriptOptions
	RemotePort  int
	HandoffPath string
	// LoginHost is the cluster login node shown in the remote-access
	// instructions. Empty means the instructions assume a local terminal.
	LoginHost string
	// LogPath is referenced in failure messages so the operator can find
	// diagnostics.
	LogPath string

	MonitorInterval time.Duration
}

// Session owns the job, the tunnel and the handoff record for its lifetime.
type Session struct {
	scheduler Scheduler
	feedback  slurm.Feedback
	logger    *logrus.Logger
	opts      Options
	ledger    *cleanup.Ledger

	// Seams for tests; production wiring fills these with the real thing.
	wait       func(ctx context.Context, jobID string) (bool, error)
	freePort   func() (int, error)
	openTunnel func(node string, localPort, remotePort int) (Handle, error)
	waitReady  func(ctx context.Context, addr string) error
	sleep      func(ctx context.Context, d time.Duration) bool
}

// New builds a session around the given scheduler client.
func New(scheduler Scheduler, feedback slurm.Feedback, logger *logrus.Logger, opts Options) *Session {
	if opts.RemotePort == 0 {
		opts.RemotePort = 8000
	}
	if opts.HandoffPath == "" {
		opts.HandoffPath = DefaultHandoffPath()
	}
	if opts.MonitorInterval == 0 {
		opts.MonitorInterval = time.Second
	}
	s := &Session{
		scheduler: scheduler,
		feedback:  feedback,
		logger:    logger,
		opts:      opts,
		ledger:    cleanup.NewLedger(logger),
	}
	s.wait = func(ctx context.Context, jobID string) (bool, error) {
		return slurm.NewWaiter(scheduler, feedback).Wait(ctx, jobID)
	}
	s.freePort = tunnel.FreePort
	s.openTunnel = func(node string, localPort, remotePort int) (Handle, error) {
		return tunnel.Open(node, localPort, remotePort, logger)
	}
	s.waitReady = tunnel.WaitReady
	s.sleep = func(ctx context.Context, d time.Duration) bool {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		}
	}
	return s
}

// Run executes the full deployment lifecycle and returns the process exit
// code. ctx cancellation (operator interrupt) is a clean shutdown, not a
// failure. The cleanup ledger drains on every path.
func (s *Session) Run(ctx context.Context) int {
	defer s.ledger.Run()

	debugAction := s.ledger.Register("print debug info", func() {
		s.logger.Infof("deployment ended before a job was submitted; see %s", s.opts.LogPath)
	})

	jobID, code := s.submit(ctx)
	if code != ExitOK {
		return code
	}

	s.ledger.Unregister(debugAction)
	s.ledger.Register("print debug info", func() {
		s.logger.Infof("local log: %s", s.opts.LogPath)
		s.logger.Infof("scheduler log for job %s: llm-inference-%s.log in the submission directory", jobID, jobID)
	})
	// The job must never outlive the session unacknowledged. Cancelling a
	// job that already ended is a no-op on the scheduler side.
	s.ledger.Register("cancel job "+jobID, func() {
		s.scheduler.Cancel(context.Background(), jobID)
	})

	ok, err := s.wait(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Info("interrupted while waiting for job start, shutting down")
			return ExitOK
		}
		s.logger.Errorf("waiting for job %s: %v (see %s)", jobID, err, s.opts.LogPath)
		return ExitStartFailed
	}
	if !ok {
		s.logger.Errorf("job %s did not reach a confirmed running state; see %s and the scheduler log llm-inference-%s.log", jobID, s.opts.LogPath, jobID)
		return ExitStartFailed
	}

	tun, code := s.establishTunnel(ctx, jobID)
	if code != ExitOK {
		return code
	}

	return s.monitor(ctx, jobID, tun)
}

func (s *Session) submit(ctx context.Context) (string, int) {
	script, err := slurm.RenderScript(s.opts.Script)
	if err != nil {
		s.logger.Errorf("render submission script: %v", err)
		return "", ExitSubmitFailed
	}
	file, err := os.CreateTemp("", "llmdeploy-*.sbatch")
	if err != nil {
		s.logger.Errorf("write submission script: %v", err)
		return "", ExitSubmitFailed
	}
	defer os.Remove(file.Name())
	if _, err := file.WriteString(script); err != nil {
		_ = file.Close()
		s.logger.Errorf("write submission script: %v", err)
		return "", ExitSubmitFailed
	}
	if err := file.Close(); err != nil {
		s.logger.Errorf("write submission script: %v", err)
		return "", ExitSubmitFailed
	}

	jobID, err := s.scheduler.Submit(ctx, file.Name())
	if err != nil {
		s.logger.Errorf("%v (see %s)", err, s.opts.LogPath)
		return "", ExitSubmitFailed
	}
	return jobID, ExitOK
}

func (s *Session) establishTunnel(ctx context.Context, jobID string) (Handle, int) {
	localPort, err := s.freePort()
	if err != nil {
		s.logger.Errorf("allocate local port: %v", err)
		return nil, ExitTunnelDied
	}
	node, err := s.scheduler.QueryNode(ctx, jobID)
	if err != nil {
		s.logger.Errorf("resolve compute node for job %s: %v", jobID, err)
		return nil, ExitTunnelDied
	}
	if node == "" {
		s.logger.Errorf("scheduler reports no compute node for job %s", jobID)
		return nil, ExitTunnelDied
	}

	tun, err := s.openTunnel(node, localPort, s.opts.RemotePort)
	if err != nil {
		s.logger.Errorf("open tunnel to %s: %v", node, err)
		return nil, ExitTunnelDied
	}
	s.ledger.Register("terminate tunnel", tun.Close)

	readyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = s.waitReady(readyCtx, fmt.Sprintf("127.0.0.1:%d", localPort))
	cancel()
	if err != nil || !tun.Alive() {
		s.logger.Errorf("tunnel to %s did not come up: %v", node, err)
		return nil, ExitTunnelDied
	}

	rec := HandoffRecord{JobID: jobID, Port: strconv.Itoa(localPort), Node: node}
	if err := WriteHandoff(s.opts.HandoffPath, rec); err != nil {
		s.logger.Warnf("%v", err)
	} else {
		s.ledger.Register("delete handoff record", func() {
			if err := RemoveHandoff(s.opts.HandoffPath); err != nil {
				s.logger.Warnf("remove handoff record: %v", err)
			}
		})
	}

	s.printInstructions(localPort, node)
	return tun, ExitOK
}

func (s *Session) printInstructions(localPort int, node string) {
	bold := color.New(color.Bold)
	s.feedback.Info(fmt.Sprintf("Job is running on %s.", node))
	bold.Printf("The inference server is reachable at http://localhost:%d\n", localPort)
	if s.opts.LoginHost != "" {
		bold.Printf("From another machine, first forward the port through the login node:\n")
		bold.Printf("  ssh -N -L %d:localhost:%d %s\n", localPort, localPort, s.opts.LoginHost)
	}
	fmt.Println("Press Ctrl-C to shut the deployment down.")
}

func (s *Session) monitor(ctx context.Context, jobID string, tun Handle) int {
	for {
		if !s.sleep(ctx, s.opts.MonitorInterval) {
			s.logger.Info("interrupt received, shutting down deployment")
			return ExitOK
		}
		if !tun.Alive() {
			s.logger.Errorf("tunnel process died unexpectedly; see %s", s.opts.LogPath)
			return ExitTunnelDied
		}
		raw, state, err := s.scheduler.QueryStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("interrupt received, shutting down deployment")
				return ExitOK
			}
			// Transient query failures are absorbed; the next tick retries.
			s.logger.Warnf("status query failed: %v", err)
			continue
		}
		switch state {
		case slurm.StateRunning:
			continue
		case slurm.StateCompleted:
			s.logger.Infof("job %s completed", jobID)
			return ExitOK
		default:
			s.logger.Errorf("job %s ended abnormally (status %q); see %s and the scheduler log llm-inference-%s.log",
				jobID, raw, s.opts.LogPath, jobID)
			return ExitJobAbnormalEnd
		}
	}
}

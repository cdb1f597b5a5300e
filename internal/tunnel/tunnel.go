// Package tunnel supervises the SSH port forward that bridges the operator's
// machine to the inference server on a compute node.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// FreePort binds an ephemeral local port, releases it and returns the number
// for reuse by a process started shortly after. Another process can grab the
// port in between; this is a best-effort allocation, not a reservation.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Tunnel owns one running ssh child forwarding localhost:LocalPort to
// RemotePort on Node.
type Tunnel struct {
	Node       string
	LocalPort  int
	RemotePort int

	cmd    *exec.Cmd
	logger *logrus.Logger

	mu     sync.Mutex
	exited bool
}

// Open spawns the forwarding child and returns as soon as it has started.
// Spawn success does not imply the forward works; check Alive (and WaitReady)
// separately.
func Open(node string, localPort, remotePort int, logger *logrus.Logger) (*Tunnel, error) {
	args := []string{
		"-N",
		"-o", "ExitOnForwardFailure=yes",
		"-o", "ServerAliveInterval=10",
		"-o", "ServerAliveCountMax=3",
		"-o", "ConnectTimeout=10",
		"-L", fmt.Sprintf("%d:localhost:%d", localPort, remotePort),
		node,
	}
	logger.Debugf("starting tunnel: ssh %v", args)
	return start(exec.Command("ssh", args...), node, localPort, remotePort, logger)
}

func start(cmd *exec.Cmd, node string, localPort, remotePort int, logger *logrus.Logger) (*Tunnel, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ssh tunnel: %w", err)
	}
	t := &Tunnel{
		Node:       node,
		LocalPort:  localPort,
		RemotePort: remotePort,
		cmd:        cmd,
		logger:     logger,
	}
	// Reap the child in the background so Alive can observe its exit
	// without blocking.
	go func() {
		err := cmd.Wait()
		t.mu.Lock()
		t.exited = true
		t.mu.Unlock()
		if err != nil {
			logger.Debugf("tunnel to %s exited: %v", node, err)
		}
	}()
	return t, nil
}

// Alive reports whether the forwarding child is still running. Non-blocking.
func (t *Tunnel) Alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.exited
}

// Close terminates the forwarding child. Safe to call repeatedly and after
// the child has already exited.
func (t *Tunnel) Close() {
	t.mu.Lock()
	exited := t.exited
	t.mu.Unlock()
	if exited {
		return
	}
	t.logger.Debugf("terminating tunnel to %s (local port %d)", t.Node, t.LocalPort)
	if err := t.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone; the reaper goroutine will record the exit.
		t.logger.Debugf("signal tunnel: %v", err)
	}
}

// WaitReady polls the forwarded address until a TCP connect succeeds or ctx
// expires.
func WaitReady(ctx context.Context, addr string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for tcp %s", addr)
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, time.Second)
			if err == nil {
				_ = conn.Close()
				return nil
			}
		}
	}
}

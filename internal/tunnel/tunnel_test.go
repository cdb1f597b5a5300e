package tunnel

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llmdeploy/llmdeploy/internal/logging"
)

func TestFreePort(t *testing.T) {
	port, err := FreePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
	assert.LessOrEqual(t, port, 65535)

	// The port must be bindable again after release.
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	_ = l.Close()
}

func TestWaitReady(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, WaitReady(ctx, l.Addr().String()))
}

func TestWaitReadyTimeout(t *testing.T) {
	// Grab a port and close it so nothing accepts there.
	port, err := FreePort()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	err = WaitReady(ctx, fmt.Sprintf("127.0.0.1:%d", port))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

// startFakeChild drives the tunnel bookkeeping with a sleeping child process
// instead of ssh.
func startFakeChild(t *testing.T, dur string) *Tunnel {
	t.Helper()
	tn, err := start(exec.Command("sleep", dur), "node01", 8000, 8000, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(tn.Close)
	return tn
}

func TestTunnelLifecycle(t *testing.T) {
	tn := startFakeChild(t, "5")
	assert.True(t, tn.Alive())

	tn.Close()
	waitExited(t, tn)
	assert.False(t, tn.Alive())

	// Idempotent after exit.
	tn.Close()
	assert.False(t, tn.Alive())
}

func TestTunnelObservesSelfExit(t *testing.T) {
	tn := startFakeChild(t, "0.05")
	waitExited(t, tn)
	assert.False(t, tn.Alive())
}

func waitExited(t *testing.T, tn *Tunnel) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for tn.Alive() {
		if time.Now().After(deadline) {
			t.Fatal("child did not exit in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melvinsat/melvinctl/internal/errors"
)

func TestEnsureDaemonAlreadyRunning(t *testing.T) {
	// A listener standing in for a running daemon.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	opts := ContainerOptions{Addr: ln.Addr().String()}

	started, err := EnsureDaemon(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, started, "an already-running daemon must be a no-op")

	// Idempotence: a second call behaves identically.
	started, err = EnsureDaemon(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, started)
}

func TestEnsureDaemonStartFailure(t *testing.T) {
	opts := ContainerOptions{
		Addr:          "127.0.0.1:1", // nothing can listen here
		DaemonCommand: []string{"/nonexistent/melvind"},
		ReadyTimeout:  200 * time.Millisecond,
		ProbeInterval: 50 * time.Millisecond,
	}

	_, err := EnsureDaemon(context.Background(), opts)
	require.Error(t, err)

	var derr *errors.DeployError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, errors.ErrCodeTransferDaemon, derr.Code)
}

func TestEnsureDaemonNeverReady(t *testing.T) {
	// Command starts fine but never listens.
	opts := ContainerOptions{
		Addr:          "127.0.0.1:1",
		DaemonCommand: []string{"true"},
		ReadyTimeout:  200 * time.Millisecond,
		ProbeInterval: 50 * time.Millisecond,
	}

	_, err := EnsureDaemon(context.Background(), opts)
	require.Error(t, err)

	var derr *errors.DeployError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, errors.ErrCodeTransferDaemon, derr.Code)
}

func TestResolvePortDefaults(t *testing.T) {
	assert.Equal(t, 2345, ResolvePort("unknown-host-alias", 2345))
	assert.Equal(t, 22, ResolvePort("unknown-host-alias", 0))
}

func TestContainerOptionDefaults(t *testing.T) {
	opts := ContainerOptions{}

	assert.Equal(t, DefaultContainerAddr, opts.addr())
	assert.Equal(t, []string{"melvind", "--listen", DefaultContainerAddr}, opts.daemonCommand())
	assert.Equal(t, 10*time.Second, opts.readyTimeout())
}

package transport

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/melvinsat/melvinctl/internal/credentials"
	"github.com/melvinsat/melvinctl/internal/errors"
	"github.com/melvinsat/melvinctl/internal/log"
)

// DefaultContainerAddr is where the in-container daemon listens.
const DefaultContainerAddr = "127.0.0.1:2222"

// ContainerOptions configures the container-host channel.
type ContainerOptions struct {
	// Addr is the daemon's listen address; DefaultContainerAddr when empty.
	Addr string

	// Credentials for the SSH connection to the daemon.
	Credentials credentials.Credentials

	// DaemonCommand starts the daemon when it is not running. Defaults
	// to launching melvind on Addr.
	DaemonCommand []string

	// ReadyTimeout bounds the wait for the daemon to accept
	// connections after a start. Defaults to 10s.
	ReadyTimeout time.Duration

	// ProbeInterval is the poll cadence while waiting. Defaults to 200ms.
	ProbeInterval time.Duration

	// CallTimeout is forwarded to the underlying SSH transport.
	CallTimeout time.Duration

	// Logger defaults to the package-global logger.
	Logger *log.Logger
}

func (o *ContainerOptions) addr() string {
	if o.Addr == "" {
		return DefaultContainerAddr
	}
	return o.Addr
}

func (o *ContainerOptions) daemonCommand() []string {
	if len(o.DaemonCommand) > 0 {
		return o.DaemonCommand
	}
	return []string{"melvind", "--listen", o.addr()}
}

func (o *ContainerOptions) readyTimeout() time.Duration {
	if o.ReadyTimeout == 0 {
		return 10 * time.Second
	}
	return o.ReadyTimeout
}

func (o *ContainerOptions) probeInterval() time.Duration {
	if o.ProbeInterval == 0 {
		return 200 * time.Millisecond
	}
	return o.ProbeInterval
}

func (o *ContainerOptions) logger() *log.Logger {
	if o.Logger == nil {
		return log.DefaultLogger()
	}
	return o.Logger
}

// EnsureDaemon idempotently starts the container-local SSH daemon.
// An already-listening daemon is a no-op, not an error. Returns
// whether this call started it.
func EnsureDaemon(ctx context.Context, opts ContainerOptions) (bool, error) {
	addr := opts.addr()

	if probe(addr) {
		opts.logger().Debug("daemon already running", "addr", addr)
		return false, nil
	}

	command := opts.daemonCommand()
	opts.logger().Info("starting daemon", "addr", addr, "command", command[0])

	cmd := exec.Command(command[0], command[1:]...)
	if err := cmd.Start(); err != nil {
		return false, errors.Wrap(errors.ErrCodeTransferDaemon,
			fmt.Sprintf("could not start %s", command[0]), err)
	}
	// The daemon outlives this process; detach instead of waiting.
	if err := cmd.Process.Release(); err != nil {
		return false, errors.Wrap(errors.ErrCodeTransferDaemon,
			fmt.Sprintf("could not detach %s", command[0]), err)
	}

	deadline := time.Now().Add(opts.readyTimeout())
	for time.Now().Before(deadline) {
		if probe(addr) {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, errors.Wrap(errors.ErrCodeTransferDaemon, "daemon start cancelled", ctx.Err())
		case <-time.After(opts.probeInterval()):
		}
	}

	return false, errors.New(errors.ErrCodeTransferDaemon,
		fmt.Sprintf("daemon did not accept connections on %s within %s", addr, opts.readyTimeout()))
}

func probe(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// DialContainer ensures the in-container daemon is up and connects to
// it as a bare host on the container-local address.
func DialContainer(ctx context.Context, opts ContainerOptions) (*SSHTransport, error) {
	if _, err := EnsureDaemon(ctx, opts); err != nil {
		return nil, err
	}

	host, portStr, err := net.SplitHostPort(opts.addr())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransferDial,
			fmt.Sprintf("invalid container address %q", opts.addr()), err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransferDial,
			fmt.Sprintf("invalid container port %q", portStr), err)
	}

	return DialSSH(ctx, SSHOptions{
		Host:        host,
		Port:        port,
		Credentials: opts.Credentials,
		CallTimeout: opts.CallTimeout,
		Logger:      opts.Logger,
	})
}

package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/melvinsat/melvinctl/internal/credentials"
	"github.com/melvinsat/melvinctl/internal/errors"
	"github.com/melvinsat/melvinctl/internal/log"
)

const (
	// DefaultDialTimeout bounds connection establishment.
	DefaultDialTimeout = 30 * time.Second

	// DefaultCallTimeout bounds each Exec/Push/Pull call so a hung
	// transfer does not wedge the whole run.
	DefaultCallTimeout = 5 * time.Minute
)

// SSHOptions configures a bare-host SSH transport.
type SSHOptions struct {
	// Host is the target host or an ~/.ssh/config alias.
	Host string

	// Port overrides the resolved port when non-zero.
	Port int

	// Credentials supplies the user and auth methods. Required.
	Credentials credentials.Credentials

	// HostKeyCallback defaults to accepting any host key; the
	// deployment targets are short-lived evaluation hosts.
	HostKeyCallback ssh.HostKeyCallback

	// DialTimeout defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// CallTimeout defaults to DefaultCallTimeout.
	CallTimeout time.Duration

	// Logger defaults to the package-global logger.
	Logger *log.Logger
}

// SSHTransport is the bare-host delivery channel: command execution
// over SSH, file transfer over SFTP.
type SSHTransport struct {
	client      *ssh.Client
	sftp        *sftp.Client
	callTimeout time.Duration
	logger      *log.Logger
}

// DialSSH connects to the target and opens an SFTP subsystem.
func DialSSH(ctx context.Context, opts SSHOptions) (*SSHTransport, error) {
	if opts.Credentials == nil {
		return nil, errors.New(errors.ErrCodeTransferDial, "no credentials supplied for transport")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.DefaultLogger()
	}

	auth, err := opts.Credentials.AuthMethods()
	if err != nil {
		return nil, err
	}

	hostKey := opts.HostKeyCallback
	if hostKey == nil {
		hostKey = ssh.InsecureIgnoreHostKey() //nolint:gosec
	}

	dialTimeout := opts.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = DefaultDialTimeout
	}

	hostname := ResolveHostName(opts.Host)
	addr := net.JoinHostPort(hostname, fmt.Sprintf("%d", ResolvePort(opts.Host, opts.Port)))

	config := &ssh.ClientConfig{
		User:            opts.Credentials.User(),
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         dialTimeout,
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransferDial,
			fmt.Sprintf("could not reach %s", addr), err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.ErrCodeTransferDial,
			fmt.Sprintf("SSH handshake with %s failed", addr), err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(errors.ErrCodeTransferDial,
			fmt.Sprintf("could not open SFTP subsystem on %s", addr), err)
	}

	callTimeout := opts.CallTimeout
	if callTimeout == 0 {
		callTimeout = DefaultCallTimeout
	}

	logger.Debug("transport connected", "addr", addr, "user", config.User)

	return &SSHTransport{
		client:      client,
		sftp:        sftpClient,
		callTimeout: callTimeout,
		logger:      logger,
	}, nil
}

func (t *SSHTransport) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.callTimeout)
}

// Exec runs a command on the target. The error is the raw session
// error so callers can inspect exit status and stderr.
func (t *SSHTransport) Exec(ctx context.Context, command string) (string, string, error) {
	ctx, cancel := t.callContext(ctx)
	defer cancel()

	session, err := t.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	t.logger.Debug("exec", "command", command)

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err := <-done:
		return stdout.String(), stderr.String(), err
	case <-ctx.Done():
		session.Close()
		return stdout.String(), stderr.String(), ctx.Err()
	}
}

// Push copies a local file to remotePath. The file is written to a
// staging name next to the destination and renamed into place, so a
// failed transfer is never visible under the final name.
func (t *SSHTransport) Push(ctx context.Context, localPath, remotePath string) error {
	ctx, cancel := t.callContext(ctx)
	defer cancel()

	local, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileReadFailed,
			fmt.Sprintf("could not open %s", localPath), err)
	}
	defer local.Close()

	info, err := local.Stat()
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileReadFailed,
			fmt.Sprintf("could not stat %s", localPath), err)
	}

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := t.sftp.MkdirAll(dir); err != nil {
			return errors.NewTransferError(remotePath, err)
		}
	}

	staging := fmt.Sprintf("%s.partial-%s", remotePath, uuid.NewString()[:8])
	copied, err := t.writeStaged(ctx, local, staging, info.Mode().Perm())
	if err != nil {
		_ = t.sftp.Remove(staging)
		return errors.NewTransferError(remotePath, err)
	}

	if copied != info.Size() {
		_ = t.sftp.Remove(staging)
		return errors.New(errors.ErrCodeTransferVerify,
			fmt.Sprintf("short write to %s: %d of %d bytes", remotePath, copied, info.Size()))
	}

	if err := t.sftp.PosixRename(staging, remotePath); err != nil {
		_ = t.sftp.Remove(staging)
		return errors.NewTransferError(remotePath, err)
	}

	t.logger.Info("pushed", "local", localPath, "remote", remotePath, "bytes", copied)
	return nil
}

func (t *SSHTransport) writeStaged(ctx context.Context, src io.Reader, staging string, mode os.FileMode) (int64, error) {
	remote, err := t.sftp.Create(staging)
	if err != nil {
		return 0, err
	}

	copied, err := io.Copy(remote, contextReader{ctx, src})
	if cerr := remote.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return copied, err
	}

	if err := t.sftp.Chmod(staging, mode); err != nil {
		return copied, err
	}
	return copied, nil
}

// Pull copies a remote file to localPath with local-side staging.
func (t *SSHTransport) Pull(ctx context.Context, remotePath, localPath string) error {
	ctx, cancel := t.callContext(ctx)
	defer cancel()

	remote, err := t.sftp.Open(remotePath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTransferRetrieve,
			fmt.Sprintf("could not open remote %s", remotePath), err)
	}
	defer remote.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteError,
			fmt.Sprintf("could not create %s", filepath.Dir(localPath)), err)
	}

	staging := fmt.Sprintf("%s.partial-%s", localPath, uuid.NewString()[:8])
	local, err := os.Create(staging)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteError,
			fmt.Sprintf("could not create %s", staging), err)
	}

	_, err = io.Copy(local, contextReader{ctx, remote})
	if cerr := local.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(staging)
		return errors.Wrap(errors.ErrCodeTransferRetrieve,
			fmt.Sprintf("could not retrieve %s", remotePath), err)
	}

	if err := os.Rename(staging, localPath); err != nil {
		_ = os.Remove(staging)
		return errors.Wrap(errors.ErrCodeFileWriteError,
			fmt.Sprintf("could not finalize %s", localPath), err)
	}

	t.logger.Info("pulled", "remote", remotePath, "local", localPath)
	return nil
}

// PullDir recursively copies a remote directory tree into localDir.
func (t *SSHTransport) PullDir(ctx context.Context, remoteDir, localDir string) error {
	entries, err := t.sftp.ReadDir(remoteDir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTransferRetrieve,
			fmt.Sprintf("could not list remote %s", remoteDir), err)
	}

	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeFileWriteError,
			fmt.Sprintf("could not create %s", localDir), err)
	}

	for _, entry := range entries {
		remote := path.Join(remoteDir, entry.Name())
		local := filepath.Join(localDir, entry.Name())

		if entry.IsDir() {
			if err := t.PullDir(ctx, remote, local); err != nil {
				return err
			}
			continue
		}
		if err := t.Pull(ctx, remote, local); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the SFTP subsystem and the SSH connection.
func (t *SSHTransport) Close() error {
	serr := t.sftp.Close()
	cerr := t.client.Close()
	if serr != nil {
		return serr
	}
	return cerr
}

// contextReader aborts a copy once its context is done. SFTP reads
// have no native cancellation, so this is checked between chunks.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

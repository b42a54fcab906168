// Package daemon implements the in-container SSH server. Running it
// turns a container into a bare deployment host reachable on a fixed
// container-local port: exec for session management, SFTP for
// transfers.
package daemon

import (
	goerrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"github.com/gliderlabs/ssh"
	"github.com/pkg/sftp"

	"github.com/melvinsat/melvinctl/internal/log"
)

// ErrAlreadyRunning reports that another daemon holds the listen
// address. Supervisors treat this as success, not failure.
var ErrAlreadyRunning = goerrors.New("daemon already running on this address")

// Config for the embedded SSH server.
type Config struct {
	// Addr is the listen address, e.g. 127.0.0.1:2222.
	Addr string

	// AuthorizedKeysFile allows public-key auth against its entries.
	AuthorizedKeysFile string

	// Password enables password auth when non-empty.
	Password string

	// HostKeyFile persists the host key across restarts. When empty an
	// ephemeral key is generated per process.
	HostKeyFile string

	// Logger defaults to the package-global logger.
	Logger *log.Logger
}

// Server wraps the SSH server with deployment-host handlers.
type Server struct {
	ssh    *ssh.Server
	logger *log.Logger
}

// New builds a Server from config. At least one auth mechanism must be
// configured.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.DefaultLogger()
	}

	if cfg.AuthorizedKeysFile == "" && cfg.Password == "" {
		return nil, goerrors.New("daemon: no auth configured (need authorized keys or password)")
	}

	s := &Server{logger: logger}

	srv := &ssh.Server{
		Addr:    cfg.Addr,
		Handler: s.handle,
		SubsystemHandlers: map[string]ssh.SubsystemHandler{
			"sftp": s.handleSFTP,
		},
	}

	if cfg.AuthorizedKeysFile == "" {
		// Password-only hosts skip the public key check entirely.
		srv.PublicKeyHandler = nil
	} else {
		path := cfg.AuthorizedKeysFile
		srv.PublicKeyHandler = func(ctx ssh.Context, key ssh.PublicKey) bool {
			ok := keyAuthorized(path, key)
			if !ok {
				logger.Warn("public key rejected", "user", ctx.User())
			}
			return ok
		}
	}

	if cfg.Password != "" {
		password := cfg.Password
		srv.PasswordHandler = func(ctx ssh.Context, given string) bool {
			return given == password
		}
	}

	if cfg.HostKeyFile != "" {
		if err := srv.SetOption(ssh.HostKeyFile(cfg.HostKeyFile)); err != nil {
			return nil, fmt.Errorf("daemon: host key %s: %w", cfg.HostKeyFile, err)
		}
	}

	s.ssh = srv
	return s, nil
}

func keyAuthorized(path string, key ssh.PublicKey) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for len(data) > 0 {
		allowed, _, _, rest, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			return false
		}
		if ssh.KeysEqual(key, allowed) {
			return true
		}
		data = rest
	}
	return false
}

// handle services an exec or shell request.
func (s *Server) handle(sess ssh.Session) {
	raw := sess.RawCommand()
	if raw == "" {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		raw = shell
	}

	s.logger.Debug("session", "user", sess.User(), "command", raw)

	cmd := exec.Command("/bin/sh", "-c", raw)
	cmd.Env = append(os.Environ(), sess.Environ()...)

	ptyReq, winCh, isPty := sess.Pty()
	if isPty {
		cmd.Env = append(cmd.Env, "TERM="+ptyReq.Term)
		f, err := pty.Start(cmd)
		if err != nil {
			fmt.Fprintf(sess.Stderr(), "pty: %v\n", err)
			_ = sess.Exit(1)
			return
		}
		defer f.Close()

		go func() {
			for win := range winCh {
				_ = pty.Setsize(f, &pty.Winsize{
					Rows: uint16(win.Height),
					Cols: uint16(win.Width),
				})
			}
		}()
		go func() {
			_, _ = io.Copy(f, sess) // stdin
		}()
		_, _ = io.Copy(sess, f) // stdout

		_ = sess.Exit(waitExitCode(cmd))
		return
	}

	cmd.Stdin = sess
	cmd.Stdout = sess
	cmd.Stderr = sess.Stderr()
	if err := cmd.Run(); err != nil {
		_ = sess.Exit(exitCode(err))
		return
	}
	_ = sess.Exit(0)
}

func waitExitCode(cmd *exec.Cmd) int {
	if err := cmd.Wait(); err != nil {
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if goerrors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// handleSFTP serves the SFTP subsystem over the session channel.
func (s *Server) handleSFTP(sess ssh.Session) {
	server, err := sftp.NewServer(sess)
	if err != nil {
		s.logger.Error("sftp server", "error", err)
		return
	}
	if err := server.Serve(); err != nil && err != io.EOF {
		s.logger.Error("sftp serve", "error", err)
	}
	_ = server.Close()
}

// ListenAndServe binds the configured address and serves until Close.
// A bound address maps to ErrAlreadyRunning so idempotent supervisors
// can treat it as a no-op.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.ssh.Addr)
	if err != nil {
		if goerrors.Is(err, syscall.EADDRINUSE) {
			return ErrAlreadyRunning
		}
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Close.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("daemon listening", "addr", ln.Addr().String())
	return s.ssh.Serve(ln)
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.ssh.Close()
}

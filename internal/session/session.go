// Package session manages the named, detachable tmux session the
// onboard binary runs in. At most one session with the reserved name
// exists on a host; redeploys always kill-then-create.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/melvinsat/melvinctl/internal/errors"
	"github.com/melvinsat/melvinctl/internal/log"
)

// ReservedName is the single session name used by deployments.
const ReservedName = "melvin"

// Runner executes a command on the target host. The SSH transport
// satisfies this; tests substitute a fake.
type Runner interface {
	Exec(ctx context.Context, command string) (stdout, stderr string, err error)
}

// Manager drives tmux on the target host through a Runner.
type Manager struct {
	runner Runner
	logger *log.Logger

	// ConfigFile is the tmux configuration to load at server start,
	// as transferred by the orchestrator. Optional.
	ConfigFile string
}

// NewManager creates a Manager on top of a Runner.
func NewManager(runner Runner, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Manager{runner: runner, logger: logger}
}

func (m *Manager) tmux(args string) string {
	if m.ConfigFile != "" {
		return "tmux -f " + shellQuote(m.ConfigFile) + " " + args
	}
	return "tmux " + args
}

// EnsureClean guarantees no session named name is running when it
// returns. A session that never existed is success, not an error.
func (m *Manager) EnsureClean(ctx context.Context, name string) error {
	_, stderr, err := m.runner.Exec(ctx, m.tmux("kill-session -t ="+shellQuote(name)))
	if err == nil {
		m.logger.Info("killed existing session", "session", name)
		return nil
	}
	if sessionAbsent(stderr) {
		m.logger.Debug("no session to kill", "session", name)
		return nil
	}
	return errors.NewTeardownError(name, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr)))
}

// Exists reports whether a session named name is running.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	_, stderr, err := m.runner.Exec(ctx, m.tmux("has-session -t ="+shellQuote(name)))
	if err == nil {
		return true, nil
	}
	if sessionAbsent(stderr) {
		return false, nil
	}
	return false, errors.Wrap(errors.ErrCodeSessionQuery,
		fmt.Sprintf("could not query session %q", name), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr)))
}

// Launch creates a detached session running command with exactly env
// applied, using the explicit environment-map form. The command is
// handed to tmux as a single `sh -c` argument so shell operators in it
// run inside the session, not in the transport shell. If creation
// fails the host is left with no session at all (fail-clean).
func (m *Manager) Launch(ctx context.Context, name, command string, env []string) error {
	var b strings.Builder
	b.WriteString(m.tmux("new-session -d -s " + shellQuote(name) + " "))
	b.WriteString("env")
	for _, kv := range env {
		b.WriteString(" ")
		b.WriteString(shellQuote(kv))
	}
	b.WriteString(" sh -c ")
	b.WriteString(shellQuote(command))

	if _, stderr, err := m.runner.Exec(ctx, b.String()); err != nil {
		// Creation may have half-happened; make sure nothing lingers.
		_ = m.EnsureClean(ctx, name)
		return errors.NewLaunchError(name, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr)))
	}

	running, err := m.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !running {
		return errors.NewLaunchError(name, fmt.Errorf("session exited immediately after creation"))
	}

	m.logger.Info("session launched", "session", name, "env_vars", len(env))
	return nil
}

// sessionAbsent recognizes the tmux stderr shapes that mean "nothing
// there", which the contract treats as success for teardown.
func sessionAbsent(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "can't find session") ||
		strings.Contains(s, "session not found") ||
		strings.Contains(s, "no server running")
}

// shellQuote single-quotes a token for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Package deploy sequences a full redeployment: build the artifact,
// transfer it with its session configuration, replace the remote
// session, and launch. The sequence is strictly linear and fail-fast;
// every failure is terminal for the run and the operator re-runs the
// whole deployment.
package deploy

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/melvinsat/melvinctl/internal/build"
	"github.com/melvinsat/melvinctl/internal/envcfg"
	"github.com/melvinsat/melvinctl/internal/errors"
	"github.com/melvinsat/melvinctl/internal/log"
	"github.com/melvinsat/melvinctl/internal/session"
)

// State tracks the orchestrator through its linear run.
type State int

const (
	// StateIdle is the initial state
	StateIdle State = iota
	// StateBuilt means the artifact compiled and was digested
	StateBuilt
	// StateTransferred means artifact and session config reached the target
	StateTransferred
	// StateSessionReplaced means any previous session was torn down
	StateSessionReplaced
	// StateLaunched is the terminal success state
	StateLaunched
	// StateFailed is the terminal failure state
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBuilt:
		return "Built"
	case StateTransferred:
		return "Transferred"
	case StateSessionReplaced:
		return "SessionReplaced"
	case StateLaunched:
		return "Launched"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Builder produces the artifact. *build.Builder satisfies this.
type Builder interface {
	Build(ctx context.Context) (*build.Artifact, error)
}

// Copier pushes files to the target. The transport satisfies this.
type Copier interface {
	Push(ctx context.Context, localPath, remotePath string) error
}

// Sessions replaces and launches the remote session. *session.Manager
// satisfies this.
type Sessions interface {
	EnsureClean(ctx context.Context, name string) error
	Launch(ctx context.Context, name, command string, env []string) error
}

// Options wires an orchestrator run.
type Options struct {
	Builder  Builder
	Copier   Copier
	Sessions Sessions

	// Config is the validated environment configuration. Required;
	// validation failures must never reach the transport stage, so an
	// unresolved config is a programming error here.
	Config *envcfg.Config

	// RemoteDir is where the artifact and session config land on the
	// target. Defaults to /home/melvin.
	RemoteDir string

	// SessionName defaults to the reserved name.
	SessionName string

	// SessionConfigPath is the local tmux configuration transferred
	// verbatim next to the artifact. Optional.
	SessionConfigPath string

	Logger *log.Logger
}

// Orchestrator executes the deployment state machine.
type Orchestrator struct {
	opts   Options
	state  State
	runID  string
	logger *log.Logger
}

// New validates options and returns an orchestrator in StateIdle.
func New(opts Options) (*Orchestrator, error) {
	if opts.Builder == nil || opts.Copier == nil || opts.Sessions == nil {
		return nil, errors.New(errors.ErrCodeLaunchDirty, "orchestrator wired without builder, copier, or sessions")
	}
	if opts.Config == nil {
		return nil, errors.New(errors.ErrCodeConfigMissingURL, "orchestrator requires a resolved environment configuration")
	}
	if opts.RemoteDir == "" {
		opts.RemoteDir = "/home/melvin"
	}
	if opts.SessionName == "" {
		opts.SessionName = session.ReservedName
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.DefaultLogger()
	}

	runID := uuid.NewString()
	return &Orchestrator{
		opts:   opts,
		state:  StateIdle,
		runID:  runID,
		logger: logger.With("run_id", runID),
	}, nil
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

// RunID returns the unique ID of this run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run drives the state machine to completion. On the first failure the
// orchestrator enters StateFailed and the error is returned typed for
// exit-code mapping.
func (o *Orchestrator) Run(ctx context.Context) (*Manifest, error) {
	manifest := newManifest(o.runID)

	artifact, err := o.stepBuild(ctx, manifest)
	if err != nil {
		return manifest.failed(err), err
	}

	remoteBinary, err := o.stepTransfer(ctx, manifest, artifact)
	if err != nil {
		return manifest.failed(err), err
	}

	if err := o.stepReplaceSession(ctx, manifest); err != nil {
		return manifest.failed(err), err
	}

	if err := o.stepLaunch(ctx, manifest, remoteBinary); err != nil {
		return manifest.failed(err), err
	}

	manifest.Outcome = "launched"
	manifest.FinishedAt = time.Now().UTC()
	o.logger.Info("deployment complete", "state", o.state.String())
	return manifest, nil
}

func (o *Orchestrator) stepBuild(ctx context.Context, m *Manifest) (*build.Artifact, error) {
	step := m.begin("build")

	artifact, err := o.opts.Builder.Build(ctx)
	if err != nil {
		o.state = StateFailed
		step.end(err)
		return nil, err
	}

	m.Artifact = &ManifestArtifact{
		Path:    artifact.Path,
		Triple:  artifact.Triple,
		Profile: string(artifact.Profile),
		Digest:  artifact.Digest,
		Size:    artifact.Size,
	}

	o.state = StateBuilt
	step.end(nil)
	o.logger.Info("artifact built", "triple", artifact.Triple, "digest", artifact.Digest[:16])
	return artifact, nil
}

func (o *Orchestrator) stepTransfer(ctx context.Context, m *Manifest, artifact *build.Artifact) (string, error) {
	step := m.begin("transfer")

	remoteBinary := path.Join(o.opts.RemoteDir, path.Base(artifact.Path))
	if err := o.opts.Copier.Push(ctx, artifact.Path, remoteBinary); err != nil {
		o.state = StateFailed
		step.end(err)
		return "", err
	}

	if o.opts.SessionConfigPath != "" {
		remoteConf := path.Join(o.opts.RemoteDir, path.Base(o.opts.SessionConfigPath))
		if err := o.opts.Copier.Push(ctx, o.opts.SessionConfigPath, remoteConf); err != nil {
			o.state = StateFailed
			step.end(err)
			return "", err
		}
	}

	o.state = StateTransferred
	step.end(nil)
	return remoteBinary, nil
}

func (o *Orchestrator) stepReplaceSession(ctx context.Context, m *Manifest) error {
	step := m.begin("replace-session")

	if err := o.opts.Sessions.EnsureClean(ctx, o.opts.SessionName); err != nil {
		o.state = StateFailed
		step.end(err)
		return err
	}

	o.state = StateSessionReplaced
	step.end(nil)
	return nil
}

func (o *Orchestrator) stepLaunch(ctx context.Context, m *Manifest, remoteBinary string) error {
	step := m.begin("launch")

	command := fmt.Sprintf("cd %s && ./%s", o.opts.RemoteDir, path.Base(remoteBinary))
	if err := o.opts.Sessions.Launch(ctx, o.opts.SessionName, command, o.opts.Config.Environ()); err != nil {
		o.state = StateFailed
		step.end(err)
		return err
	}

	o.state = StateLaunched
	step.end(nil)
	return nil
}

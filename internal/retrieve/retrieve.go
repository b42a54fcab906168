// Package retrieve pulls post-run evaluation artifacts back from the
// target host: dump files, rendered images, and optionally a full
// snapshot gated behind an explicit opt-in flag.
package retrieve

import (
	"context"
	"strings"

	"github.com/melvinsat/melvinctl/internal/envcfg"
	"github.com/melvinsat/melvinctl/internal/log"
)

// Puller is the transport subset the retriever needs.
type Puller interface {
	Pull(ctx context.Context, remotePath, localPath string) error
	PullDir(ctx context.Context, remoteDir, localDir string) error
}

// PathPair maps a fixed remote location to its local destination.
type PathPair struct {
	Remote string
	Local  string
}

// Paths is the fixed remote path set of one evaluation run.
type Paths struct {
	Dumps    PathPair
	Images   PathPair
	Snapshot PathPair
}

// DefaultPaths matches the onboard binary's output layout.
func DefaultPaths() Paths {
	return Paths{
		Dumps:    PathPair{Remote: "/home/melvin/dumps", Local: "evaluation/dumps"},
		Images:   PathPair{Remote: "/home/melvin/images", Local: "evaluation/images"},
		Snapshot: PathPair{Remote: "/home/melvin/snapshot.tar.gz", Local: "evaluation/snapshot.tar.gz"},
	}
}

// Retriever copies the evaluation artifact set.
type Retriever struct {
	puller Puller
	paths  Paths
	logger *log.Logger

	// IncludeSnapshot additionally pulls the full snapshot. Leaving it
	// unset skips that transfer without error.
	IncludeSnapshot bool
}

// New creates a Retriever with the default path set.
func New(puller Puller, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Retriever{puller: puller, paths: DefaultPaths(), logger: logger}
}

// WithPaths overrides the path set.
func (r *Retriever) WithPaths(paths Paths) *Retriever {
	r.paths = paths
	return r
}

// Pull copies dumps and images, plus the snapshot when opted in, and
// returns the local destinations written.
func (r *Retriever) Pull(ctx context.Context) ([]string, error) {
	var locals []string

	if err := r.puller.PullDir(ctx, r.paths.Dumps.Remote, r.paths.Dumps.Local); err != nil {
		return locals, err
	}
	locals = append(locals, r.paths.Dumps.Local)

	if err := r.puller.PullDir(ctx, r.paths.Images.Remote, r.paths.Images.Local); err != nil {
		return locals, err
	}
	locals = append(locals, r.paths.Images.Local)

	if !r.IncludeSnapshot {
		r.logger.Debug("snapshot retrieval not requested, skipping")
		return locals, nil
	}

	if err := r.puller.Pull(ctx, r.paths.Snapshot.Remote, r.paths.Snapshot.Local); err != nil {
		return locals, err
	}
	locals = append(locals, r.paths.Snapshot.Local)

	return locals, nil
}

// SnapshotRequested reports whether the invoking environment carries
// the PULL_FULL presence flag.
func SnapshotRequested(environ []string) bool {
	for _, kv := range environ {
		if kv == envcfg.VarPullFull || strings.HasPrefix(kv, envcfg.VarPullFull+"=") {
			return true
		}
	}
	return false
}

// Package build produces the onboard binary for the fixed target
// platform. The build itself is delegated to cargo; this package owns
// invocation, artifact location, and digesting.
package build

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/melvinsat/melvinctl/internal/errors"
)

// DefaultTriple is the execution target's platform.
const DefaultTriple = "x86_64-unknown-linux-gnu"

// DefaultBinaryName is the crate's binary name.
const DefaultBinaryName = "melvin-ob"

// Profile selects the cargo build profile.
type Profile string

const (
	// ProfileRelease builds with optimizations (the deployed profile)
	ProfileRelease Profile = "release"
	// ProfileDebug builds without optimizations
	ProfileDebug Profile = "debug"
)

// Runner executes a build command. The default shells out; tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args in dir, capturing both output streams.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Artifact is an immutable build product. Rebuilds supersede, never
// mutate.
type Artifact struct {
	Path    string
	Triple  string
	Profile Profile
	Digest  string
	Size    int64
	BuiltAt time.Time
}

// Builder compiles the onboard crate for a fixed target triple.
type Builder struct {
	// SourceDir is the crate root.
	SourceDir string

	// Triple is the target platform; DefaultTriple when empty.
	Triple string

	// Profile defaults to ProfileRelease.
	Profile Profile

	// BinaryName defaults to DefaultBinaryName.
	BinaryName string

	// Runner defaults to ExecRunner.
	Runner Runner
}

func (b *Builder) triple() string {
	if b.Triple == "" {
		return DefaultTriple
	}
	return b.Triple
}

func (b *Builder) profile() Profile {
	if b.Profile == "" {
		return ProfileRelease
	}
	return b.Profile
}

func (b *Builder) binaryName() string {
	if b.BinaryName == "" {
		return DefaultBinaryName
	}
	return b.BinaryName
}

func (b *Builder) runner() Runner {
	if b.Runner == nil {
		return ExecRunner{}
	}
	return b.Runner
}

// Build runs cargo for the configured triple and profile and returns
// the digested artifact. Compilation failure is fatal for the run.
func (b *Builder) Build(ctx context.Context) (*Artifact, error) {
	args := []string{"build", "--target", b.triple()}
	if b.profile() == ProfileRelease {
		args = append(args, "--release")
	}

	_, stderr, err := b.runner().Run(ctx, b.SourceDir, "cargo", args...)
	if err != nil {
		return nil, errors.NewBuildFailedError(b.triple(),
			fmt.Errorf("%w: %s", err, tail(stderr, 2048)))
	}

	path := filepath.Join(b.SourceDir, "target", b.triple(), string(b.profile()), b.binaryName())
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBuildNoArtifact,
			fmt.Sprintf("build succeeded but artifact %s is missing", path), err)
	}

	digest, err := FileDigest(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBuildNoArtifact,
			fmt.Sprintf("could not digest artifact %s", path), err)
	}

	return &Artifact{
		Path:    path,
		Triple:  b.triple(),
		Profile: b.profile(),
		Digest:  digest,
		Size:    info.Size(),
		BuiltAt: time.Now().UTC(),
	}, nil
}

// FileDigest computes the blake3 hex digest of a file.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

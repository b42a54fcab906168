// Package transport delivers artifacts and commands to a deployment
// target. Two channels exist: a direct SSH connection to a bare host,
// and a container-local variant that first ensures the in-container
// SSH daemon is up and then treats the container as a bare host on
// localhost.
package transport

import (
	"context"
	"strconv"

	"github.com/kevinburke/ssh_config"
)

// Transport is the delivery channel the orchestrator and retriever
// drive. Push is atomic from the caller's perspective: a failed
// transfer never leaves a partial file visible under the final name.
type Transport interface {
	// Exec runs a command on the target and returns its output.
	Exec(ctx context.Context, command string) (stdout, stderr string, err error)

	// Push copies a local file to remotePath, staging and renaming so
	// the destination only ever appears complete.
	Push(ctx context.Context, localPath, remotePath string) error

	// Pull copies a remote file to localPath with the same staging
	// discipline on the local side.
	Pull(ctx context.Context, remotePath, localPath string) error

	// PullDir recursively copies a remote directory tree.
	PullDir(ctx context.Context, remoteDir, localDir string) error

	// Close releases the connection.
	Close() error
}

// ResolveHostName maps an ~/.ssh/config alias to its HostName, or
// returns the input unchanged when no entry exists.
func ResolveHostName(host string) string {
	if h := ssh_config.Get(host, "HostName"); h != "" {
		return h
	}
	return host
}

// ResolvePort returns the explicit port when non-zero, otherwise the
// ~/.ssh/config Port for the alias, otherwise 22.
func ResolvePort(host string, port int) int {
	if port != 0 {
		return port
	}
	if cp := ssh_config.Get(host, "Port"); cp != "" {
		if p, err := strconv.Atoi(cp); err == nil && p > 0 && p < 1<<16 {
			return p
		}
	}
	return 22
}

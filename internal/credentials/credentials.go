// Package credentials supplies per-invocation SSH credentials to the
// transport layer. Nothing here is ever hardcoded or shared globally;
// the caller chooses a provider and passes it down explicitly.
package credentials

import (
	goerrors "errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/term"

	"github.com/melvinsat/melvinctl/internal/errors"
)

// Credentials is the capability handed to the transport layer. A
// provider yields the SSH user and the auth methods to try, in order.
type Credentials interface {
	// User returns the login name to authenticate as.
	User() string

	// AuthMethods returns the SSH auth methods for this provider.
	AuthMethods() ([]ssh.AuthMethod, error)
}

// KeyFile authenticates with a private key on disk. Encrypted keys are
// unlocked through the Passphrase callback.
type KeyFile struct {
	Username string
	Path     string

	// Passphrase is invoked when the key is encrypted. Nil means
	// encrypted keys fail instead of prompting.
	Passphrase func() ([]byte, error)
}

// User returns the login name.
func (k *KeyFile) User() string { return k.Username }

// AuthMethods parses the key file into a public-key auth method.
func (k *KeyFile) AuthMethods() ([]ssh.AuthMethod, error) {
	data, err := os.ReadFile(k.Path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCredKeyUnreadable,
			fmt.Sprintf("could not read private key %s", k.Path), err)
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err == nil {
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	var missing *ssh.PassphraseMissingError
	if !goerrors.As(err, &missing) || k.Passphrase == nil {
		return nil, errors.Wrap(errors.ErrCodeCredKeyInvalid,
			fmt.Sprintf("could not parse private key %s", k.Path), err)
	}

	pass, err := k.Passphrase()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCredKeyInvalid, "passphrase prompt failed", err)
	}
	signer, err = ssh.ParsePrivateKeyWithPassphrase(data, pass)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCredKeyInvalid,
			fmt.Sprintf("could not decrypt private key %s", k.Path), err)
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// Agent authenticates through a running ssh-agent.
type Agent struct {
	Username string

	// Socket overrides SSH_AUTH_SOCK when non-empty.
	Socket string
}

// User returns the login name.
func (a *Agent) User() string { return a.Username }

// AuthMethods connects to the agent socket and defers signing to it.
func (a *Agent) AuthMethods() ([]ssh.AuthMethod, error) {
	socket := a.Socket
	if socket == "" {
		socket = os.Getenv("SSH_AUTH_SOCK")
	}
	if socket == "" {
		return nil, errors.New(errors.ErrCodeCredAgentMissing, "no ssh-agent socket (SSH_AUTH_SOCK unset)")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCredAgentMissing,
			fmt.Sprintf("could not reach ssh-agent at %s", socket), err)
	}

	client := agent.NewClient(conn)
	return []ssh.AuthMethod{ssh.PublicKeysCallback(client.Signers)}, nil
}

// Password authenticates with a static password. Kept for the legacy
// shared-secret hosts; key-based providers are preferred.
type Password struct {
	Username string
	Secret   string
}

// User returns the login name.
func (p *Password) User() string { return p.Username }

// AuthMethods returns a password auth method.
func (p *Password) AuthMethods() ([]ssh.AuthMethod, error) {
	return []ssh.AuthMethod{ssh.Password(p.Secret)}, nil
}

// TerminalPassphrase returns a Passphrase callback that prompts on the
// controlling terminal without echoing.
func TerminalPassphrase(keyPath string) func() ([]byte, error) {
	return func() ([]byte, error) {
		fmt.Fprintf(os.Stderr, "Enter passphrase for %s: ", keyPath)
		defer fmt.Fprintln(os.Stderr)
		return term.ReadPassword(int(os.Stdin.Fd()))
	}
}

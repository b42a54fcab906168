package cmd

import (
	"context"
	"os"

	"github.com/melvinsat/melvinctl/internal/credentials"
	"github.com/melvinsat/melvinctl/internal/errors"
	"github.com/melvinsat/melvinctl/internal/log"
	"github.com/melvinsat/melvinctl/internal/transport"
)

// Topology names accepted by --topology.
const (
	TopologyBare      = "bare"
	TopologyContainer = "container"
)

type targetFlags struct {
	topology    string
	host        string
	port        int
	user        string
	keyFile     string
	passwordEnv string
}

// apply overlays non-empty flag values onto the file configuration.
func (f *targetFlags) apply(cfg *FileConfig) {
	switch f.topology {
	case TopologyContainer:
		if f.host != "" {
			cfg.Container.Addr = f.host
		}
		if f.user != "" {
			cfg.Container.User = f.user
		}
		if f.keyFile != "" {
			cfg.Container.KeyFile = f.keyFile
		}
		if f.passwordEnv != "" {
			cfg.Container.PasswordEnv = f.passwordEnv
		}
	default:
		if f.host != "" {
			cfg.Bare.Host = f.host
		}
		if f.port != 0 {
			cfg.Bare.Port = f.port
		}
		if f.user != "" {
			cfg.Bare.User = f.user
		}
		if f.keyFile != "" {
			cfg.Bare.KeyFile = f.keyFile
		}
		if f.passwordEnv != "" {
			cfg.Bare.PasswordEnv = f.passwordEnv
		}
	}
}

// credsFor builds a per-invocation credentials provider. Precedence is
// key file, then password from the named environment variable, then
// the running SSH agent.
func credsFor(user, keyFile, passwordEnv string) (credentials.Credentials, error) {
	if keyFile != "" {
		return &credentials.KeyFile{
			Username:   user,
			Path:       keyFile,
			Passphrase: credentials.TerminalPassphrase(keyFile),
		}, nil
	}
	if passwordEnv != "" {
		secret, ok := os.LookupEnv(passwordEnv)
		if !ok {
			return nil, errors.New(errors.ErrCodeCredKeyUnreadable,
				"password environment variable "+passwordEnv+" is not set")
		}
		return &credentials.Password{Username: user, Secret: secret}, nil
	}
	return &credentials.Agent{Username: user}, nil
}

// dialTarget opens the transport for the selected topology.
func dialTarget(ctx context.Context, topology string, cfg *FileConfig, logger *log.Logger) (*transport.SSHTransport, error) {
	switch topology {
	case TopologyContainer:
		creds, err := credsFor(cfg.Container.User, cfg.Container.KeyFile, cfg.Container.PasswordEnv)
		if err != nil {
			return nil, err
		}
		return transport.DialContainer(ctx, transport.ContainerOptions{
			Addr:          cfg.Container.Addr,
			Credentials:   creds,
			DaemonCommand: cfg.Container.DaemonCommand,
			Logger:        logger,
		})
	case TopologyBare:
		creds, err := credsFor(cfg.Bare.User, cfg.Bare.KeyFile, cfg.Bare.PasswordEnv)
		if err != nil {
			return nil, err
		}
		return transport.DialSSH(ctx, transport.SSHOptions{
			Host:        cfg.Bare.Host,
			Port:        cfg.Bare.Port,
			Credentials: creds,
			Logger:      logger,
		})
	default:
		return nil, errors.New(errors.ErrCodeConfigFileInvalid,
			"unknown topology "+topology+" (expected bare or container)")
	}
}

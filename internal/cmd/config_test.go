package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melvinsat/melvinctl/internal/errors"
	"github.com/melvinsat/melvinctl/internal/exitcode"
)

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig()

	assert.Equal(t, ".", cfg.SourceDir)
	assert.Equal(t, "/home/melvin", cfg.RemoteDir)
	assert.Equal(t, 22, cfg.Bare.Port)
	assert.Equal(t, "root", cfg.Bare.User)
	assert.Equal(t, "127.0.0.1:2222", cfg.Container.Addr)
}

func TestLoadFileConfigMissingDefaultIsFine(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	cfg, err := LoadFileConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFileConfig(), cfg)
}

func TestLoadFileConfigMissingExplicitFails(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, exitcode.GeneralError, exitcode.FromError(err))
}

func TestLoadFileConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	data := `
remote_dir: /opt/melvin
bare:
  host: 10.100.50.1
  user: melvin
  key_file: /home/op/.ssh/id_ed25519
container:
  addr: 127.0.0.1:4022
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFileConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/melvin", cfg.RemoteDir)
	assert.Equal(t, "10.100.50.1", cfg.Bare.Host)
	assert.Equal(t, "melvin", cfg.Bare.User)
	// Unset fields keep their defaults.
	assert.Equal(t, 22, cfg.Bare.Port)
	assert.Equal(t, ".", cfg.SourceDir)
	assert.Equal(t, "127.0.0.1:4022", cfg.Container.Addr)
}

func TestLoadFileConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bare: [not a mapping"), 0o644))

	_, err := LoadFileConfig(path)
	require.Error(t, err)

	var derr *errors.DeployError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, errors.ErrCodeConfigFileInvalid, derr.Code)
	assert.Equal(t, exitcode.ConfigValidationFailure, exitcode.FromError(err))
}

func TestTargetFlagsApplyBare(t *testing.T) {
	cfg := DefaultFileConfig()
	f := &targetFlags{
		topology: TopologyBare,
		host:     "orbiter",
		port:     2200,
		user:     "melvin",
	}
	f.apply(cfg)

	assert.Equal(t, "orbiter", cfg.Bare.Host)
	assert.Equal(t, 2200, cfg.Bare.Port)
	assert.Equal(t, "melvin", cfg.Bare.User)
	// Container target stays untouched.
	assert.Equal(t, "127.0.0.1:2222", cfg.Container.Addr)
}

func TestTargetFlagsApplyContainer(t *testing.T) {
	cfg := DefaultFileConfig()
	f := &targetFlags{
		topology: TopologyContainer,
		host:     "127.0.0.1:4022",
		user:     "melvin",
	}
	f.apply(cfg)

	assert.Equal(t, "127.0.0.1:4022", cfg.Container.Addr)
	assert.Equal(t, "melvin", cfg.Container.User)
	assert.Empty(t, cfg.Bare.Host)
}

func TestCredsForPasswordEnvMissing(t *testing.T) {
	_, err := credsFor("root", "", "MELVINCTL_TEST_PASSWORD_UNSET")
	require.Error(t, err)
	assert.Equal(t, exitcode.CredentialsFailure, exitcode.FromError(err))
}

func TestCredsForPasswordEnv(t *testing.T) {
	t.Setenv("MELVINCTL_TEST_PASSWORD", "orbit")

	creds, err := credsFor("root", "", "MELVINCTL_TEST_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "root", creds.User())

	methods, err := creds.AuthMethods()
	require.NoError(t, err)
	assert.Len(t, methods, 1)
}

func TestCredsForKeyFileWins(t *testing.T) {
	creds, err := credsFor("melvin", "/home/op/.ssh/id_ed25519", "IGNORED")
	require.NoError(t, err)
	assert.Equal(t, "melvin", creds.User())
}

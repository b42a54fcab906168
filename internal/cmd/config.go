package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/melvinsat/melvinctl/internal/errors"
)

// DefaultConfigFile is searched in the working directory when --config
// is not given.
const DefaultConfigFile = ".melvinctl.yaml"

// TargetConfig describes one SSH deployment target.
type TargetConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	KeyFile     string `yaml:"key_file"`
	PasswordEnv string `yaml:"password_env"`
}

// ContainerTarget describes an SSH-enabled container target reached
// through a published address.
type ContainerTarget struct {
	Addr          string   `yaml:"addr"`
	User          string   `yaml:"user"`
	KeyFile       string   `yaml:"key_file"`
	PasswordEnv   string   `yaml:"password_env"`
	DaemonCommand []string `yaml:"daemon_command"`
}

// FileConfig is the on-disk deployment configuration.
type FileConfig struct {
	SourceDir     string          `yaml:"source_dir"`
	RemoteDir     string          `yaml:"remote_dir"`
	SessionConfig string          `yaml:"session_config"`
	ManifestDir   string          `yaml:"manifest_dir"`
	Bare          TargetConfig    `yaml:"bare"`
	Container     ContainerTarget `yaml:"container"`
}

// DefaultFileConfig returns the configuration used when no file is
// present.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		SourceDir: ".",
		RemoteDir: "/home/melvin",
		Bare: TargetConfig{
			Port: 22,
			User: "root",
		},
		Container: ContainerTarget{
			Addr: "127.0.0.1:2222",
			User: "root",
		},
	}
}

// LoadFileConfig reads the deployment configuration. A missing file is
// not an error unless the path was given explicitly.
func LoadFileConfig(path string) (*FileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultFileConfig(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	cfg := DefaultFileConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigFileInvalid,
			fmt.Sprintf("invalid config file %s", path), err)
	}
	return cfg, nil
}

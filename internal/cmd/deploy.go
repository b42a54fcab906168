package cmd

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/melvinsat/melvinctl/internal/build"
	"github.com/melvinsat/melvinctl/internal/deploy"
	"github.com/melvinsat/melvinctl/internal/envcfg"
	"github.com/melvinsat/melvinctl/internal/errors"
	"github.com/melvinsat/melvinctl/internal/log"
	"github.com/melvinsat/melvinctl/internal/session"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Build, transfer, and launch the onboard binary",
	Long: `Deploy runs the full pipeline against the selected target: compile
the onboard binary for the fixed target platform, copy it over SSH,
replace the reserved tmux session, and launch with the resolved
environment configuration.

Recognized environment toggles are collected from the calling
environment and can be overridden with --env KEY=VALUE. DRS_BASE_URL
must be present in the result.`,
	Example: `  DRS_BASE_URL=http://10.100.50.1:33000 melvinctl deploy --topology bare --host 10.100.50.1
  melvinctl deploy --topology container --env DRS_BASE_URL=http://drs:33000 --env SKIP_RESET=1`,
	RunE: runDeploy,
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.DefaultLogger()

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := LoadFileConfig(configPath)
	if err != nil {
		return err
	}

	target := targetFlagsFrom(cmd)
	target.apply(cfg)

	if dir, _ := cmd.Flags().GetString("source"); dir != "" {
		cfg.SourceDir = dir
	}
	if dir, _ := cmd.Flags().GetString("manifest-dir"); dir != "" {
		cfg.ManifestDir = dir
	}

	values := envcfg.Collect(os.Environ())
	overrides, _ := cmd.Flags().GetStringArray("env")
	for _, kv := range overrides {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			return errors.New(errors.ErrCodeConfigBadValue,
				fmt.Sprintf("--env expects KEY=VALUE, got %q", kv))
		}
		values[name] = value
	}

	envCfg, err := envcfg.Resolve(values)
	if err != nil {
		return err
	}

	profile, _ := cmd.Flags().GetString("profile")
	builder := &build.Builder{
		SourceDir: cfg.SourceDir,
		Profile:   build.Profile(profile),
	}

	tr, err := dialTarget(ctx, target.topology, cfg, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	sessions := session.NewManager(tr, logger)
	if cfg.SessionConfig != "" {
		sessions.ConfigFile = path.Join(cfg.RemoteDir, path.Base(cfg.SessionConfig))
	}

	orch, err := deploy.New(deploy.Options{
		Builder:           builder,
		Copier:            tr,
		Sessions:          sessions,
		Config:            envCfg,
		RemoteDir:         cfg.RemoteDir,
		SessionConfigPath: cfg.SessionConfig,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	manifest, runErr := orch.Run(ctx)
	if cfg.ManifestDir != "" && manifest != nil {
		if saved, serr := manifest.Save(cfg.ManifestDir); serr != nil {
			logger.Warn("failed to save run manifest", "error", serr)
		} else {
			logger.Info("run manifest written", "path", saved)
		}
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deployed run %s: session %s launched on %s target\n",
		orch.RunID(), session.ReservedName, target.topology)
	return nil
}

func targetFlagsFrom(cmd *cobra.Command) *targetFlags {
	f := &targetFlags{}
	f.topology, _ = cmd.Flags().GetString("topology")
	f.host, _ = cmd.Flags().GetString("host")
	f.port, _ = cmd.Flags().GetInt("port")
	f.user, _ = cmd.Flags().GetString("user")
	f.keyFile, _ = cmd.Flags().GetString("key")
	f.passwordEnv, _ = cmd.Flags().GetString("password-env")
	return f
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("topology", TopologyBare, "deployment topology (bare, container)")
	cmd.Flags().String("host", "", "target host or container address")
	cmd.Flags().Int("port", 0, "SSH port (bare topology)")
	cmd.Flags().String("user", "", "SSH user")
	cmd.Flags().String("key", "", "SSH private key file")
	cmd.Flags().String("password-env", "", "environment variable holding the SSH password")
}

func init() {
	addTargetFlags(deployCmd)
	deployCmd.Flags().String("profile", string(build.ProfileRelease), "build profile (release, debug)")
	deployCmd.Flags().String("source", "", "onboard source directory (default from config)")
	deployCmd.Flags().String("manifest-dir", "", "directory to write the run manifest into")
	deployCmd.Flags().StringArray("env", nil, "environment toggle override (KEY=VALUE, repeatable)")
	rootCmd.AddCommand(deployCmd)
}

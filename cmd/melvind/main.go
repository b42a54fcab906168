package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/melvinsat/melvinctl/internal/daemon"
	"github.com/melvinsat/melvinctl/internal/exitcode"
	"github.com/melvinsat/melvinctl/internal/log"
	"github.com/melvinsat/melvinctl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "melvind",
	Short: "SSH and SFTP daemon for container deployment targets",
	Long: `melvind serves SSH sessions and SFTP file transfers inside a
container so melvinctl can deploy there the same way it deploys to a
bare host. Starting it while another instance holds the listen
address is a no-op, so supervisors can invoke it unconditionally.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		cfg := log.DefaultConfig()
		cfg.Level = log.ParseLevel(level)
		cfg.ServiceName = "melvind"
		logger := log.New(cfg)
		log.SetDefaultLogger(logger)

		addr, _ := cmd.Flags().GetString("listen")
		authKeys, _ := cmd.Flags().GetString("authorized-keys")
		passwordEnv, _ := cmd.Flags().GetString("password-env")
		hostKey, _ := cmd.Flags().GetString("host-key")

		var password string
		if passwordEnv != "" {
			password = os.Getenv(passwordEnv)
		}

		srv, err := daemon.New(daemon.Config{
			Addr:               addr,
			AuthorizedKeysFile: authKeys,
			Password:           password,
			HostKeyFile:        hostKey,
			Logger:             logger,
		})
		if err != nil {
			return err
		}

		logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil {
			if errors.Is(err, daemon.ErrAlreadyRunning) {
				logger.Info("daemon already running, nothing to do", "addr", addr)
				return nil
			}
			return err
		}
		return nil
	},
}

func main() {
	rootCmd.Flags().String("listen", "127.0.0.1:2222", "address to listen on")
	rootCmd.Flags().String("authorized-keys", "", "authorized_keys file for public key auth")
	rootCmd.Flags().String("password-env", "", "environment variable holding the accepted password")
	rootCmd.Flags().String("host-key", "", "host key file (generated in memory when empty)")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}

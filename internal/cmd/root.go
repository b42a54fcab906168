package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/melvinsat/melvinctl/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "melvinctl",
	Short: "Deployment and session orchestration for the MELVIN onboard binary",
	Long: `melvinctl builds the onboard binary for the fixed target platform,
transfers it to a deployment target (bare host or SSH-enabled container),
replaces the named tmux session it runs in, and launches it with a
validated environment configuration. It also retrieves post-run
evaluation artifacts and generates the CI workflow definitions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")

		cfg := log.DefaultConfig()
		cfg.Level = log.ParseLevel(level)
		cfg.Format = log.ParseFormat(format)
		log.SetDefaultLogger(log.New(cfg))
	},
}

// ExecuteContext runs the root command with the given context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "deployment config file (default .melvinctl.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

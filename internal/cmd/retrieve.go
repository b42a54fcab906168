package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/melvinsat/melvinctl/internal/log"
	"github.com/melvinsat/melvinctl/internal/retrieve"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Pull evaluation artifacts from the target",
	Long: `Retrieve copies the post-run evaluation artifacts from the target
onto this machine: the event dump directory and captured images are
always pulled, the full state snapshot only with --full or when
PULL_FULL is present in the environment.`,
	RunE: runRetrieve,
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := log.DefaultLogger()

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := LoadFileConfig(configPath)
	if err != nil {
		return err
	}

	target := targetFlagsFrom(cmd)
	target.apply(cfg)

	tr, err := dialTarget(ctx, target.topology, cfg, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	full, _ := cmd.Flags().GetBool("full")

	r := retrieve.New(tr, logger)
	r.IncludeSnapshot = full || retrieve.SnapshotRequested(os.Environ())

	locals, err := r.Pull(ctx)
	if err != nil {
		return err
	}

	for _, local := range locals {
		fmt.Fprintln(cmd.OutOrStdout(), local)
	}
	return nil
}

func init() {
	addTargetFlags(retrieveCmd)
	retrieveCmd.Flags().Bool("full", false, "also pull the full state snapshot")
	rootCmd.AddCommand(retrieveCmd)
}

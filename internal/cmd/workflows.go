package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melvinsat/melvinctl/internal/ci"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Manage CI workflow definitions",
}

var workflowsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the CI workflow files",
	Long: `Generate renders the build/release and docs-publish workflow
definitions and writes them into the workflows directory. Existing
files are overwritten so the checked-in workflows stay in sync with
the definitions here.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("output")
		written, err := ci.WriteAll(dir)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func init() {
	workflowsGenerateCmd.Flags().String("output", ".github/workflows", "directory to write workflow files into")
	workflowsCmd.AddCommand(workflowsGenerateCmd)
	rootCmd.AddCommand(workflowsCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/melvinsat/melvinctl/internal/ux"
	"github.com/melvinsat/melvinctl/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.GetInfo()

		format, _ := cmd.Flags().GetString("format")
		if format == "text" {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		}

		formatter, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		return formatter.Format(info)
	},
}

func init() {
	versionCmd.Flags().String("format", "text", "output format (text, json, yaml)")
	rootCmd.AddCommand(versionCmd)
}

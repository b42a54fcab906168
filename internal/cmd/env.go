package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/melvinsat/melvinctl/internal/envcfg"
	"github.com/melvinsat/melvinctl/internal/errors"
	"github.com/melvinsat/melvinctl/internal/ux"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect and validate environment toggles",
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the recognized environment toggles",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format == "text" {
			for _, spec := range envcfg.Table {
				required := ""
				if spec.Mandatory {
					required = " (required)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %-8s %s%s\n",
					spec.Name, kindName(spec.Kind), spec.Effect, required)
			}
			return nil
		}

		formatter, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
		if err != nil {
			return err
		}

		type toggle struct {
			Name      string `json:"name" yaml:"name"`
			Kind      string `json:"kind" yaml:"kind"`
			Mandatory bool   `json:"mandatory" yaml:"mandatory"`
			Effect    string `json:"effect" yaml:"effect"`
		}
		out := make([]toggle, 0, len(envcfg.Table))
		for _, spec := range envcfg.Table {
			out = append(out, toggle{
				Name:      spec.Name,
				Kind:      kindName(spec.Kind),
				Mandatory: spec.Mandatory,
				Effect:    spec.Effect,
			})
		}
		return formatter.Format(out)
	},
}

var envResolveCmd = &cobra.Command{
	Use:   "resolve [KEY=VALUE...]",
	Short: "Validate toggles and print the launch environment",
	Long: `Resolve collects the recognized toggles from the calling environment,
applies any KEY=VALUE arguments on top, validates the result, and
prints the exact environment the session would be launched with.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		values := envcfg.Collect(os.Environ())
		for _, kv := range args {
			name, value, found := strings.Cut(kv, "=")
			if !found {
				return errors.New(errors.ErrCodeConfigBadValue,
					"expected KEY=VALUE argument, got "+kv)
			}
			values[name] = value
		}

		cfg, err := envcfg.Resolve(values)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		formatter, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
		if err != nil {
			return err
		}
		return formatter.Format(cfg.Environ())
	},
}

func kindName(k envcfg.Kind) string {
	switch k {
	case envcfg.KindURL:
		return "url"
	case envcfg.KindFlag:
		return "flag"
	case envcfg.KindIntList:
		return "int-list"
	default:
		return "unknown"
	}
}

func init() {
	envListCmd.Flags().String("format", "text", "output format (text, json, yaml)")
	envResolveCmd.Flags().String("format", "text", "output format (text, json, yaml)")
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envResolveCmd)
	rootCmd.AddCommand(envCmd)
}

// Package config provides the config command for JobApply
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobapply/jobapply/internal/conf"
)

// Command creates and returns the config command
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := conf.Dump(settings)
			if err != nil {
				return err
			}
			if used := conf.ConfigFileUsed(); used != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "# no config file found, defaults and environment only")
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}

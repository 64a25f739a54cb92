package main

import (
	"github.com/spf13/cobra"

	"github.com/arcletproject/entari-console/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the console version",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newOutputFormatter(cmd)
			if out.JSON() {
				return out.Print(map[string]string{"version": version.String()})
			}
			return out.Print("entari-console " + version.FormatVersion(version.String()))
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/gotmt"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = gotmt.Version
	commit    = gotmt.GitCommit
	buildDate = gotmt.BuildDate
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", gotmt.Name, version)
			if commit != "unknown" && commit != "" {
				fmt.Fprintf(out, "  commit:  %s\n", commit)
			}
			if buildDate != "unknown" && buildDate != "" {
				fmt.Fprintf(out, "  built:   %s\n", buildDate)
			}
			return nil
		},
	}
}

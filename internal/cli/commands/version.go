package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the tempy version.`,
		Args:  UsageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tempy %s\n", version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Template compiler with embedded Starlark")
		},
	}
}

// Package version provides the version command for berth.
package version

import (
	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/app"
	"github.com/oar-cd/berth/cmd/output"
)

// NewCmdVersion creates the version command
func NewCmdVersion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version information for berth.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}

	return cmd
}

func runVersion(cmd *cobra.Command) error {
	return output.FprintPlain(cmd, "%s", app.Version)
}

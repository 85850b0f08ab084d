// Package stop provides the stop command for stopping the deployed service.
package stop

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/cmd/utils"
)

// NewCmdStop creates the stop command
func NewCmdStop() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the deployed service",
		Long: `Stop the deployed service through systemd.
This is equivalent to running 'systemctl stop' for the service unit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return utils.HandleCommandError(cmd, "stopping service", runStop(cmd))
		},
	}

	return cmd
}

func runStop(cmd *cobra.Command) error {
	unit, err := utils.ServiceUnit(cmd)
	if err != nil {
		return err
	}

	if err := output.FprintPlain(cmd, "Stopping service..."); err != nil {
		return err
	}

	if err := unit.Stop(cmd.Context()); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}

	return output.FprintSuccess(cmd, "Service stopped successfully")
}

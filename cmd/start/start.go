// Package start provides the start command for starting the deployed service.
package start

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/cmd/utils"
)

// NewCmdStart creates the start command
func NewCmdStart() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the deployed service",
		Long: `Start the deployed service through systemd.
This is equivalent to running 'systemctl start' for the service unit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return utils.HandleCommandError(cmd, "starting service", runStart(cmd))
		},
	}

	return cmd
}

func runStart(cmd *cobra.Command) error {
	unit, err := utils.ServiceUnit(cmd)
	if err != nil {
		return err
	}

	if err := output.FprintPlain(cmd, "Starting service..."); err != nil {
		return err
	}

	if err := unit.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	return output.FprintSuccess(cmd, "Service started successfully")
}

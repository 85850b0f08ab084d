// Package restart provides the restart command for restarting the deployed service.
package restart

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/cmd/utils"
)

// NewCmdRestart creates the restart command
func NewCmdRestart() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the deployed service",
		Long: `Restart the deployed service through systemd.
This is equivalent to running 'systemctl restart' for the service unit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return utils.HandleCommandError(cmd, "restarting service", runRestart(cmd))
		},
	}

	return cmd
}

func runRestart(cmd *cobra.Command) error {
	unit, err := utils.ServiceUnit(cmd)
	if err != nil {
		return err
	}

	if err := output.FprintPlain(cmd, "Restarting service..."); err != nil {
		return err
	}

	if err := unit.Restart(cmd.Context()); err != nil {
		return fmt.Errorf("failed to restart service: %w", err)
	}

	return output.FprintSuccess(cmd, "Service restarted successfully")
}

// Package logs provides the logs command for following the deployed service's logs.
package logs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/app"
	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/cmd/utils"
	"github.com/oar-cd/berth/runner"
)

// NewCmdLogs creates the logs command
func NewCmdLogs() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View logs from the deployed service",
		Long: `Display logs of the deployed service from the systemd journal.
This follows the logs in real-time (equivalent to journalctl -u <service> -f).
Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return utils.HandleCommandError(cmd, "following service logs", runLogs(cmd, lines))
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent lines to show before following")

	return cmd
}

func runLogs(cmd *cobra.Command, lines int) error {
	cfg, err := app.GetConfig()
	if err != nil {
		return err
	}

	if err := output.FprintPlain(cmd, "Streaming logs from %s...", cfg.ServiceName); err != nil {
		return err
	}
	if err := output.FprintPlain(cmd, "Press Ctrl+C to stop\n"); err != nil {
		return err
	}

	journalctl := runner.Tolerant("journalctl", "-u", cfg.ServiceName, "-n", fmt.Sprintf("%d", lines), "-f").Streaming()
	res, err := app.GetRunner().Run(cmd.Context(), journalctl)
	if err != nil {
		// Ctrl+C is the normal way out.
		if cmd.Context().Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to get logs: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("failed to get logs: %w", &runner.CommandError{Result: res})
	}

	return nil
}

// Package status provides the status command for checking the deployed service.
package status

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/app"
	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/cmd/utils"
	"github.com/oar-cd/berth/provision"
)

// NewCmdStatus creates the status command
func NewCmdStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of the deployed service",
		Long: `Show whether the deployed service is active and how the last provisioning run ended.
Use 'berth logs' to follow the service output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return utils.HandleCommandError(cmd, "getting service status", runStatus(cmd))
		},
	}

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	unit, err := utils.ServiceUnit(cmd)
	if err != nil {
		return err
	}
	cfg, err := app.GetConfig()
	if err != nil {
		return err
	}

	active, err := unit.IsActive(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get service status: %w", err)
	}

	state := "stopped"
	if active {
		state = "running"
	}
	pairs := [][2]string{
		{"Service", cfg.ServiceName},
		{"Status", state},
		{"Environment", presence(cfg.EnvFile)},
		{"Certificate", presence(cfg.CertPath())},
		{"Database", presence(cfg.DatabasePath())},
	}

	if j, err := app.GetJournal(); err != nil {
		slog.Warn("Run journal unavailable",
			"layer", "cli",
			"operation", "status",
			"error", err)
	} else {
		runs, err := j.List(1)
		if err != nil {
			return fmt.Errorf("failed to read run history: %w", err)
		}
		if len(runs) > 0 {
			last := runs[0]
			pairs = append(pairs,
				[2]string{"Last Run", last.ID.String()},
				[2]string{"Outcome", last.Outcome.String()},
				[2]string{"Started At", last.StartedAt.Format("2006-01-02 15:04:05")},
			)
			if last.Commit != "" {
				pairs = append(pairs, [2]string{"Commit", last.ShortCommit()})
			}
		}
	}

	out, err := output.PrintKeyValues(pairs, nil)
	if err != nil {
		return fmt.Errorf("failed to format status: %w", err)
	}
	return output.FprintPlain(cmd, "%s", out)
}

func presence(path string) string {
	if provision.Exists(path) {
		return path
	}
	return "missing (" + path + ")"
}

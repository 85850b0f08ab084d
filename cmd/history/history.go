// Package history provides the history command for inspecting past provisioning runs.
package history

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/app"
	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/cmd/utils"
	"github.com/oar-cd/berth/journal"
	"github.com/oar-cd/berth/repository"
)

func NewCmdHistory() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past provisioning runs",
		Long: `Display the provisioning runs recorded on this host.

Without arguments, lists the most recent runs with their outcome,
commit and duration. With a run ID (or an unambiguous prefix of one),
shows that run and the result of every stage.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return utils.HandleCommandError(cmd, "showing run", runShow(cmd, args[0]), "run_id", args[0])
			}
			return utils.HandleCommandError(cmd, "listing runs", runList(cmd, limit))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	return cmd
}

func runList(cmd *cobra.Command, limit int) error {
	j, err := app.GetJournal()
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}

	runs, err := j.List(limit)
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}

	out, err := output.PrintRunList(runs)
	if err != nil {
		return fmt.Errorf("failed to format runs: %w", err)
	}

	return output.FprintPlain(cmd, "%s", out)
}

func runShow(cmd *cobra.Command, ref string) error {
	j, err := app.GetJournal()
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}

	run, err := j.Find(ref)
	switch {
	case errors.Is(err, journal.ErrRunNotFound):
		cmd.SilenceUsage = true
		return fmt.Errorf("no run matches '%s'", ref)
	case errors.Is(err, repository.ErrAmbiguousID):
		cmd.SilenceUsage = true
		return fmt.Errorf("run ID '%s' is ambiguous, use more characters", ref)
	case err != nil:
		return fmt.Errorf("failed to retrieve run %s: %w", ref, err)
	}

	out, err := output.PrintRunDetails(run)
	if err != nil {
		return fmt.Errorf("failed to format run: %w", err)
	}

	return output.FprintPlain(cmd, "%s", out)
}

// Package utils provides utility functions for berth's CLI commands.
package utils

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// HandleCommandError logs a failed command and silences usage, since a runtime
// failure is not a usage mistake. Cobra still prints the returned error.
func HandleCommandError(cmd *cobra.Command, operation string, err error, context ...any) error {
	if err == nil {
		return nil
	}
	cmd.SilenceUsage = true
	slog.Error("Command failed", append([]any{"layer", "cli", "operation", operation, "error", err}, context...)...)
	return err
}

package utils

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/app"
	"github.com/oar-cd/berth/provision"
)

// ServiceUnit returns the manager for the deployed service's systemd unit.
// Supervisor commands need no ownership, so the service account is not resolved.
func ServiceUnit(cmd *cobra.Command) (*provision.ServiceUnit, error) {
	cfg, err := app.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	host := &provision.Host{
		Config: *cfg,
		Runner: app.GetRunner(),
		Out:    cmd.OutOrStdout(),
	}
	return provision.NewServiceUnit(host), nil
}

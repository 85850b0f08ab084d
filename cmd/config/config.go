// Package config provides the config command for showing what berth deploys with.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oar-cd/berth/app"
	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/cmd/utils"
	"github.com/oar-cd/berth/provision"
)

var sensitiveMarkers = []string{"SECRET", "PASSWORD", "TOKEN", "PRIVATE"}

func NewCmdConfig() *cobra.Command {
	var showEnv bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved berth configuration",
		Long: `Display the configuration berth provisions the host with, after merging
defaults, the configuration file and BERTH_* environment variables.

With --env, shows the service's environment file instead. Secret values are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showEnv {
				return utils.HandleCommandError(cmd, "showing environment", runShowEnv(cmd))
			}
			return utils.HandleCommandError(cmd, "showing configuration", runShowConfig(cmd))
		},
	}

	cmd.Flags().BoolVarP(&showEnv, "env", "e", false, "Show the service environment file")

	return cmd
}

func runShowConfig(cmd *cobra.Command) error {
	cfg, err := app.GetConfig()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	return output.FprintPlain(cmd, "%s", strings.TrimRight(string(out), "\n"))
}

func runShowEnv(cmd *cobra.Command) error {
	cfg, err := app.GetConfig()
	if err != nil {
		return err
	}

	env := provision.NewEnvironment(&provision.Host{Config: *cfg})
	values, err := env.Values()
	if err != nil {
		cmd.SilenceUsage = true
		return fmt.Errorf("failed to read %s: %w", cfg.EnvFile, err)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, values[k]})
	}

	if err := output.FprintPlain(cmd, "Environment file: %s\n", cfg.EnvFile); err != nil {
		return err
	}
	out, err := output.PrintKeyValues(pairs, isSensitive)
	if err != nil {
		return fmt.Errorf("failed to format environment: %w", err)
	}
	return output.FprintPlain(cmd, "%s", out)
}

func isSensitive(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

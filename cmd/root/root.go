// Package root implements the command line interface for berth.
package root

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oar-cd/berth/app"
	configcmd "github.com/oar-cd/berth/cmd/config"
	"github.com/oar-cd/berth/cmd/history"
	"github.com/oar-cd/berth/cmd/logs"
	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/cmd/restart"
	"github.com/oar-cd/berth/cmd/start"
	"github.com/oar-cd/berth/cmd/status"
	"github.com/oar-cd/berth/cmd/stop"
	"github.com/oar-cd/berth/cmd/version"
	"github.com/oar-cd/berth/config"
	"github.com/oar-cd/berth/logging"
	"github.com/oar-cd/berth/pipeline"
)

// Execute runs the CLI and exits with its status: 0 when the service is running or the
// host is rebooting into it, 1 otherwise.
func Execute() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Failed to close run journal",
				"layer", "cli",
				"operation", "close",
				"error", err)
		}
	}()

	if err := NewCmdRoot().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func NewCmdRoot() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "berth",
		Short: "Idempotent installer and updater for a single-host service",
		Long: `berth brings this host to a running deployment of the service: it pulls and builds
the source, installs the binary and static assets, lays down the environment file,
systemd unit, log rotation and firewall rules, runs database migrations, obtains a
TLS certificate and starts the service. Running it again updates the deployment
and keeps operator edits to the environment file.

Must be run as root.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(&config.DefaultEnvProvider{}, configPath)
			if err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			// Initialize colors (CLI flag overrides config)
			colorDisabled := !cfg.ColorEnabled
			if output.NoColor.IsSet() {
				colorDisabled = true // --no-color flag overrides config
			}
			output.InitColors(colorDisabled)

			// Initialize logging (CLI flag overrides config)
			logging.InitLogging(logging.EffectiveLevel(cfg.LogLevel))

			if err := app.InitializeWithConfig(&cfg, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runInstall(cmd)
			if err != nil {
				// The pipeline has already reported the failure.
				cmd.SilenceUsage = true
				cmd.SilenceErrors = true
			}
			return err
		},
	}

	cmd.PersistentFlags().
		StringVarP(&configPath, "config", "f", "", "Configuration file (default "+config.DefaultConfigFile+" if present)")
	cmd.PersistentFlags().VarP(logging.LogLevel, "log-level", "l", "Set log verbosity level")
	cmd.PersistentFlags().VarPF(output.NoColor, "no-color", "c", "Disable colored terminal output").NoOptDefVal = "true"

	cmd.AddCommand(
		configcmd.NewCmdConfig(),
		history.NewCmdHistory(),
		logs.NewCmdLogs(),
		restart.NewCmdRestart(),
		start.NewCmdStart(),
		status.NewCmdStatus(),
		stop.NewCmdStop(),
		version.NewCmdVersion(),
	)
	return cmd
}

// geteuid is replaced in tests.
var geteuid = os.Geteuid

func runInstall(cmd *cobra.Command) error {
	// Checked before the pipeline is built: building it resolves the service account
	// and creates the journal's state directory.
	if geteuid() != 0 {
		_ = output.FprintError(cmd, "Installation failed: %v", pipeline.ErrNotPrivileged)
		return pipeline.ErrNotPrivileged
	}

	p, err := app.NewPipeline(cmd.OutOrStdout())
	if err != nil {
		_ = output.FprintError(cmd, "Installation failed: %v", err)
		return err
	}

	report, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	slog.Info("Provisioning finished",
		"layer", "cli",
		"operation", "install",
		"run_id", report.Run.ID,
		"outcome", report.Outcome().String())
	return nil
}

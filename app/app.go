// Package app provides the application context for berth, wiring configuration,
// the command runner, the run journal and the provisioning pipeline together.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oar-cd/berth/config"
	"github.com/oar-cd/berth/git"
	"github.com/oar-cd/berth/journal"
	"github.com/oar-cd/berth/metrics"
	"github.com/oar-cd/berth/pipeline"
	"github.com/oar-cd/berth/provision"
	"github.com/oar-cd/berth/runner"
)

const gitTimeout = 5 * time.Minute

var (
	// Version is set at build time via -ldflags
	Version = "dev"

	appConfig  *config.Config
	cmdRunner  runner.Runner
	gitService *git.GitService
	runJournal *journal.Journal
)

// ErrNotInitialized is returned when a getter is used before InitializeWithConfig.
var ErrNotInitialized = errors.New("application not initialized")

// InitializeWithConfig initializes the app with a loaded Config.
// Command output of the runner goes to out.
func InitializeWithConfig(cfg *config.Config, out io.Writer) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrNotInitialized)
	}

	appConfig = cfg
	cmdRunner = runner.NewExecRunner(out)
	gitService = git.NewGitService(gitTimeout, gitOptions()...)
	runJournal = nil
	return nil
}

// gitOptions lets SSH remotes authenticate with the invoking account's key files.
func gitOptions() []git.Option {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("No home directory, SSH remotes rely on ssh-agent", "error", err)
		return nil
	}
	return []git.Option{git.WithSSHKeyDir(filepath.Join(home, ".ssh"))}
}

func GetConfig() (*config.Config, error) {
	if appConfig == nil {
		return nil, ErrNotInitialized
	}
	return appConfig, nil
}

func GetRunner() runner.Runner {
	return cmdRunner
}

// GetJournal opens the run journal on first use.
func GetJournal() (*journal.Journal, error) {
	if runJournal != nil {
		return runJournal, nil
	}
	if appConfig == nil {
		return nil, ErrNotInitialized
	}

	j, err := journal.Open(appConfig.JournalPath())
	if err != nil {
		return nil, err
	}
	runJournal = j
	return runJournal, nil
}

// NewHost resolves the service account and returns the Host every provisioner works on.
func NewHost(out io.Writer) (*provision.Host, error) {
	if appConfig == nil {
		return nil, ErrNotInitialized
	}
	return provision.NewHost(*appConfig, cmdRunner, out)
}

// NewPipeline builds the provisioning pipeline. The journal and metrics are best effort:
// a journal that cannot be opened is logged and left out.
func NewPipeline(out io.Writer) (*pipeline.Pipeline, error) {
	host, err := NewHost(out)
	if err != nil {
		return nil, err
	}

	var observers []pipeline.Observer
	if j, err := GetJournal(); err != nil {
		slog.Warn("Run journal unavailable, history will not be recorded",
			"layer", "app",
			"operation", "new_pipeline",
			"path", appConfig.JournalPath(),
			"error", err)
	} else {
		observers = append(observers, j)
	}
	observers = append(observers, metrics.NewRecorder(appConfig.ServiceName, appConfig.MetricsTextfile))

	return pipeline.New(host, gitService, pipeline.WithObservers(observers...)), nil
}

// Close releases the journal if it was opened.
func Close() error {
	if runJournal == nil {
		return nil
	}
	err := runJournal.Close()
	runJournal = nil
	return err
}

// SetRunnerForTesting allows overriding the command runner for testing purposes
func SetRunnerForTesting(r runner.Runner) {
	cmdRunner = r
}

// SetJournalForTesting allows overriding the run journal for testing purposes
func SetJournalForTesting(j *journal.Journal) {
	runJournal = j
}

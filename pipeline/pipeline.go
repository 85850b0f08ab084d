// Package pipeline drives the provisioning stages in order and resolves the outcome of a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/oar-cd/berth/cmd/output"
	"github.com/oar-cd/berth/domain"
	"github.com/oar-cd/berth/provision"
)

// Stage is one step of a run.
type Stage struct {
	Name  string
	Title string
	// Tolerant stages never abort the run; any error becomes a warning.
	Tolerant bool
	Run      func(ctx context.Context) error
}

// Observer is told about the progress of a run. Observer failures are logged and ignored.
type Observer interface {
	RunStarted(run *domain.Run) error
	StageFinished(run *domain.Run, stage domain.StageRecord) error
	RunFinished(run *domain.Run) error
}

// Report is the result of a run.
type Report struct {
	Run     *domain.Run
	Running bool
}

func (r *Report) Outcome() domain.RunOutcome {
	return r.Run.Outcome
}

type Pipeline struct {
	host      *provision.Host
	git       provision.Puller
	observers []Observer
	euid      func() int
	now       func() time.Time

	// Set by stages as the run progresses.
	commit  string
	running bool
}

type Option func(*Pipeline)

func WithObservers(observers ...Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, observers...)
	}
}

// WithEUID replaces the effective user ID lookup used by the privilege check.
func WithEUID(euid func() int) Option {
	return func(p *Pipeline) {
		p.euid = euid
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

func New(host *provision.Host, git provision.Puller, opts ...Option) *Pipeline {
	p := &Pipeline{
		host: host,
		git:  git,
		euid: os.Geteuid,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages returns the provisioning steps in the order they run.
func (p *Pipeline) Stages() []Stage {
	h := p.host
	unit := provision.NewServiceUnit(h)
	installer := provision.NewInstaller(h)
	env := provision.NewEnvironment(h)
	migrations := provision.NewMigrations(h)
	certs := provision.NewCertificates(h)

	return []Stage{
		{Name: "preflight", Title: "Preflight Checks", Run: p.preflight},
		{Name: "source_sync", Title: "Updating Source", Tolerant: true, Run: p.syncSource},
		{Name: "build", Title: "Building Server", Run: provision.NewBuilder(h).Build},
		{Name: "install_binary", Title: "Installing Binary", Run: installer.InstallBinary},
		{Name: "directories", Title: "Creating Directories", Run: provision.NewDirectories(h).Ensure},
		{Name: "static_assets", Title: "Installing Static Files", Run: installer.InstallStatic},
		{Name: "environment", Title: "Creating Environment File", Run: env.Ensure},
		{Name: "service_unit", Title: "Systemd Service", Run: unit.Write},
		{Name: "log_rotation", Title: "Setting Up Log Rotation", Run: provision.NewLogRotation(h).Write},
		{Name: "firewall", Title: "Configuring Firewall", Run: provision.NewFirewall(h).Configure},
		{Name: "database", Title: "Database", Run: func(ctx context.Context) error {
			_, err := provision.NewDatabase(h).Check(ctx)
			return err
		}},
		{Name: "migrations", Title: "Running Database Migrations", Run: func(ctx context.Context) error {
			if err := migrations.EnsureTool(ctx); err != nil {
				return err
			}
			return migrations.Apply(ctx)
		}},
		{Name: "certificate_client", Title: "Installing Certbot", Run: certs.EnsureClient},
		{Name: "certificate", Title: "Obtaining SSL Certificate", Run: certs.Obtain},
		{Name: "certificate_renewal", Title: "Setting Up Automatic Certificate Renewal", Run: certs.SetupRenewal},
		{Name: "environment_tls", Title: "Updating Environment for SSL", Run: env.AppendTLS},
		{Name: "start", Title: "Enabling and Starting Service", Run: func(ctx context.Context) error {
			running, err := provision.NewHealth(h, unit).Start(ctx)
			p.running = running
			return err
		}},
	}
}

func (p *Pipeline) preflight(ctx context.Context) error {
	if p.euid() != 0 {
		return ErrNotPrivileged
	}
	_, err := provision.NewToolchain(p.host).Check(ctx)
	return err
}

func (p *Pipeline) syncSource(ctx context.Context) error {
	commit, err := provision.NewSourceSync(p.host, p.git).Sync(ctx)
	if err != nil {
		return err
	}
	p.commit = commit
	return nil
}

// Run executes every stage in order, prints the summary and resolves the outcome.
// A non-nil error is always a *StageError and means the run was aborted.
func (p *Pipeline) Run(ctx context.Context) (report *Report, err error) {
	run := domain.NewRun(p.host.Config.ServiceName, p.now())
	report = &Report{Run: &run}
	p.commit = ""
	p.running = false

	p.notify("run_started", func(o Observer) error { return o.RunStarted(&run) })

	current := "setup"
	defer func() {
		if r := recover(); r != nil {
			p.print(output.Error, "\nInstallation failed: %v", r)
			p.print(output.Plain, "%s", strings.TrimRight(string(debug.Stack()), "\n"))
			err = &StageError{Stage: current, Err: fmt.Errorf("panic: %v", r)}
			p.finish(&run, OutcomeAborted, err)
		}
	}()

	p.banner()

	for i, stage := range p.Stages() {
		current = stage.Name

		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, p.abort(&run, stage.Name, ctxErr)
		}

		p.print(output.Plain, "\n=== %s ===", stage.Title)
		slog.Debug("Running stage",
			"layer", "pipeline",
			"operation", "run_stage",
			"stage", stage.Name)

		started := p.now()
		stageErr := stage.Run(ctx)

		record := domain.NewStageRecord(run.ID, i+1, stage.Name, started)
		record.Duration = p.now().Sub(started)
		fatal := p.classify(ctx, stage, stageErr, &record)

		if stage.Name == "source_sync" {
			run.Commit = p.commit
		}
		run.Stages = append(run.Stages, record)
		p.notify("stage_finished", func(o Observer) error { return o.StageFinished(&run, record) })

		if fatal {
			return report, p.abort(&run, stage.Name, stageErr)
		}
	}

	current = "summary"
	summary, renderErr := RenderSummary(p.host.Config, provision.Exists(p.host.Config.CertPath()), p.commit)
	if renderErr != nil {
		slog.Warn("Could not render summary",
			"layer", "pipeline",
			"operation", "summary",
			"error", renderErr)
	} else {
		p.print(output.Plain, "%s", summary)
	}

	report.Running = p.running
	if ResolveOutcome(p.running) == OutcomeRunning {
		p.finish(&run, OutcomeRunning, nil)
		return report, nil
	}

	current = "reboot"
	if rebootErr := p.reboot(ctx); rebootErr != nil {
		return report, p.abort(&run, "reboot", rebootErr)
	}
	p.finish(&run, ResolveOutcome(false), nil)
	return report, nil
}

// classify fills in the stage record and reports whether the run must stop.
func (p *Pipeline) classify(ctx context.Context, stage Stage, err error, record *domain.StageRecord) bool {
	if err == nil {
		record.Status = domain.StageStatusCompleted
		return false
	}

	record.Message = err.Error()

	if ctx.Err() != nil {
		record.Status = domain.StageStatusFailed
		return true
	}

	if n, ok := provision.AsNotice(err); ok {
		switch n.Kind {
		case provision.NoticeSkipped:
			record.Status = domain.StageStatusSkipped
			p.print(output.Warning, "⚠ %s", n.Reason)
		default:
			record.Status = domain.StageStatusTolerated
			p.print(output.Warning, "⚠ %s", err)
		}
		return false
	}

	if stage.Tolerant {
		record.Status = domain.StageStatusTolerated
		p.print(output.Warning, "⚠ %s (continuing)", err)
		slog.Warn("Stage failed and was tolerated",
			"layer", "pipeline",
			"operation", "run_stage",
			"stage", stage.Name,
			"error", err)
		return false
	}

	record.Status = domain.StageStatusFailed
	return true
}

func (p *Pipeline) abort(run *domain.Run, stage string, cause error) error {
	err := &StageError{Stage: stage, Err: cause}

	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		p.print(output.Error, "\n\nInstallation cancelled by user")
	} else {
		p.print(output.Error, "\n\nInstallation failed: %v", err)
	}

	slog.Error("Run aborted",
		"layer", "pipeline",
		"operation", "run",
		"stage", stage,
		"error", cause)

	p.finish(run, OutcomeAborted, err)
	return err
}

func (p *Pipeline) finish(run *domain.Run, outcome domain.RunOutcome, cause error) {
	if err := Transition(run.Outcome, outcome); err != nil {
		slog.Error("Outcome already resolved",
			"layer", "pipeline",
			"operation", "finish",
			"error", err)
		return
	}

	run.Outcome = outcome
	run.FinishedAt = p.now()
	if cause != nil {
		run.Error = cause.Error()
	}
	p.notify("run_finished", func(o Observer) error { return o.RunFinished(run) })
}

func (p *Pipeline) notify(operation string, fn func(Observer) error) {
	for _, o := range p.observers {
		if err := fn(o); err != nil {
			slog.Warn("Run observer failed",
				"layer", "pipeline",
				"operation", operation,
				"error", err)
		}
	}
}

func (p *Pipeline) banner() {
	cfg := p.host.Config
	rule := strings.Repeat("=", 60)
	p.print(output.Plain, "%s", rule)
	p.print(output.Plain, "%s - Production Installation", cfg.ServiceName)
	p.print(output.Plain, "%s", rule)
	p.print(output.Plain, "Project root: %s", cfg.ProjectRoot)
	p.print(output.Plain, "Target user:  %s", cfg.ServiceUser)
	p.print(output.Plain, "Domain:       %s", cfg.Domain)
}

func (p *Pipeline) print(kind color.Attribute, tmpl string, a ...any) {
	_ = output.Fprint(p.host.Out, kind, tmpl, a...)
}

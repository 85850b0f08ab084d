package provision

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/oar-cd/berth/config"
	"github.com/oar-cd/berth/runner"
)

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description={{.ServiceName}} server
After=network.target

[Service]
Type=simple
User={{.ServiceUser}}
Group={{.ServiceGroup}}
WorkingDirectory={{.DataDir}}
EnvironmentFile={{.EnvFile}}

# Server binary
ExecStart={{.BinaryDest}}

# Automatic restart configuration
Restart=always
RestartSec=10
StartLimitInterval=0

# Allow binding to privileged ports
AmbientCapabilities=CAP_NET_BIND_SERVICE

# Security hardening
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ProtectHome=true
ReadWritePaths={{.DataDir}} {{.LogDir}}
ReadOnlyPaths={{.CertRoot}}
ProtectKernelTunables=true
ProtectKernelModules=true
ProtectControlGroups=true

# Logging
StandardOutput=append:{{.ServerLogPath}}
StandardError=append:{{.ErrorLogPath}}
SyslogIdentifier={{.ServiceName}}

# Resource limits
LimitNOFILE=65536
LimitNPROC=4096

[Install]
WantedBy=multi-user.target
`))

// RenderUnit produces the systemd unit for the service. The output depends only on cfg.
func RenderUnit(cfg config.Config) (string, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("rendering service unit: %w", err)
	}
	return buf.String(), nil
}

// ServiceUnit manages the systemd unit and its lifecycle.
type ServiceUnit struct {
	host *Host
}

func NewServiceUnit(h *Host) *ServiceUnit {
	return &ServiceUnit{host: h}
}

// Write regenerates the unit file in full.
func (u *ServiceUnit) Write(ctx context.Context) error {
	content, err := RenderUnit(u.host.Config)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(u.host.Config.UnitPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing service unit: %w", err)
	}
	u.host.success("Systemd service written: %s", u.host.Config.UnitPath)
	return nil
}

func (u *ServiceUnit) Reload(ctx context.Context) error {
	return u.systemctl(ctx, "daemon-reload")
}

func (u *ServiceUnit) Enable(ctx context.Context) error {
	return u.systemctl(ctx, "enable", u.host.Config.ServiceName)
}

func (u *ServiceUnit) Start(ctx context.Context) error {
	return u.systemctl(ctx, "start", u.host.Config.ServiceName)
}

func (u *ServiceUnit) Stop(ctx context.Context) error {
	return u.systemctl(ctx, "stop", u.host.Config.ServiceName)
}

func (u *ServiceUnit) Restart(ctx context.Context) error {
	return u.systemctl(ctx, "restart", u.host.Config.ServiceName)
}

// Status runs systemctl status; exit code 0 means the unit is running.
func (u *ServiceUnit) Status(ctx context.Context) (*runner.Result, error) {
	return u.host.try(ctx, runner.Tolerant("systemctl", "status", u.host.Config.ServiceName))
}

func (u *ServiceUnit) IsActive(ctx context.Context) (bool, error) {
	res, err := u.host.try(ctx, runner.Tolerant("systemctl", "is-active", "--quiet", u.host.Config.ServiceName))
	if err != nil {
		return false, err
	}
	return res.Success(), nil
}

func (u *ServiceUnit) systemctl(ctx context.Context, args ...string) error {
	if _, err := u.host.run(ctx, runner.New("systemctl", args...)); err != nil {
		return fmt.Errorf("systemctl %s: %w", args[0], err)
	}
	return nil
}

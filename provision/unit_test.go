package provision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/testing/fixtures"
	"github.com/oar-cd/berth/testing/mocks"
)

func TestRenderUnit(t *testing.T) {
	cfg := fixtures.HostConfig("/srv")

	unit, err := RenderUnit(cfg)
	require.NoError(t, err)

	for _, line := range []string{
		"[Unit]",
		"After=network.target",
		"[Service]",
		"Type=simple",
		"User=tama",
		"Group=tama",
		"WorkingDirectory=/srv/var/lib/tama-server",
		"EnvironmentFile=/srv/etc/tama-server/env",
		"ExecStart=/srv/usr/local/bin/tama-server",
		"Restart=always",
		"RestartSec=10",
		"StartLimitInterval=0",
		"AmbientCapabilities=CAP_NET_BIND_SERVICE",
		"NoNewPrivileges=true",
		"PrivateTmp=true",
		"ProtectSystem=strict",
		"ProtectHome=true",
		"ReadWritePaths=/srv/var/lib/tama-server /srv/var/log/tama-server",
		"ReadOnlyPaths=/srv/etc/letsencrypt",
		"ProtectKernelTunables=true",
		"ProtectKernelModules=true",
		"ProtectControlGroups=true",
		"StandardOutput=append:/srv/var/log/tama-server/server.log",
		"StandardError=append:/srv/var/log/tama-server/error.log",
		"SyslogIdentifier=tama-server",
		"LimitNOFILE=65536",
		"LimitNPROC=4096",
		"[Install]",
		"WantedBy=multi-user.target",
	} {
		assert.Contains(t, unit, line+"\n")
	}
}

func TestServiceUnit_Write_Refreshes(t *testing.T) {
	h, _, _ := newTestHost(t)
	unit := NewServiceUnit(h)
	ctx := context.Background()

	require.NoError(t, unit.Write(ctx))
	first := readFile(t, h.Config.UnitPath)
	assert.Equal(t, os.FileMode(0o644), fileMode(t, h.Config.UnitPath))

	require.NoError(t, unit.Write(ctx))
	assert.Equal(t, first, readFile(t, h.Config.UnitPath))

	// Manual edits are overwritten and configuration changes show up.
	require.NoError(t, os.WriteFile(h.Config.UnitPath, []byte("edited"), 0o644))
	h.Config.LogDir = filepath.Join(filepath.Dir(h.Config.LogDir), "moved")
	require.NoError(t, unit.Write(ctx))

	refreshed := readFile(t, h.Config.UnitPath)
	assert.NotEqual(t, first, refreshed)
	assert.Contains(t, refreshed, "StandardOutput=append:"+filepath.Join(h.Config.LogDir, "server.log"))
}

func TestServiceUnit_Lifecycle(t *testing.T) {
	h, r, _ := newTestHost(t)
	unit := NewServiceUnit(h)
	ctx := context.Background()

	require.NoError(t, unit.Reload(ctx))
	require.NoError(t, unit.Enable(ctx))
	require.NoError(t, unit.Start(ctx))
	require.NoError(t, unit.Stop(ctx))
	require.NoError(t, unit.Restart(ctx))

	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable tama-server",
		"systemctl start tama-server",
		"systemctl stop tama-server",
		"systemctl restart tama-server",
	}, r.Commands())
	for _, c := range r.Calls {
		assert.True(t, c.FailFast)
	}
}

func TestServiceUnit_StartFailure(t *testing.T) {
	h, r, _ := newTestHost(t)
	r.On("systemctl start", mocks.Response{ExitCode: 1, Stderr: "Job failed"})

	err := NewServiceUnit(h).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Job failed")
}

func TestServiceUnit_IsActive(t *testing.T) {
	tests := []struct {
		name     string
		exitCode int
		want     bool
	}{
		{name: "active", exitCode: 0, want: true},
		{name: "inactive", exitCode: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, r, _ := newTestHost(t)
			r.On("systemctl is-active", mocks.Response{ExitCode: tt.exitCode})

			active, err := NewServiceUnit(h).IsActive(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, active)
			assert.Equal(t, []string{"systemctl is-active --quiet tama-server"}, r.Commands())
		})
	}
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/testing/fixtures"
)

func TestRenderSummary(t *testing.T) {
	cfg := fixtures.HostConfig(t.TempDir())

	tests := []struct {
		name        string
		certPresent bool
		commit      string
		contains    []string
		excludes    []string
	}{
		{
			name: "without certificate",
			contains: []string{
				"Service Management:",
				"sudo systemctl restart tama-server",
				"sudo journalctl -u tama-server -f",
				cfg.EnvFile,
				"0.0.0.0:443",
				"SSL certificate not found",
				"sudo certbot certonly --standalone -d tama.example.com",
			},
			excludes: []string{"SSL/TLS (Let's Encrypt):", "Commit:"},
		},
		{
			name:        "with certificate",
			certPresent: true,
			commit:      testCommit,
			contains: []string{
				"SSL/TLS (Let's Encrypt):",
				cfg.CertPath(),
				cfg.KeyPath(),
				"curl https://tama.example.com/stats",
				testCommit,
			},
			excludes: []string{"SSL certificate not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := RenderSummary(cfg, tt.certPresent, tt.commit)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, summary, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, summary, s)
			}
		})
	}
}

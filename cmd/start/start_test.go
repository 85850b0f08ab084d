package start

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/app"
	"github.com/oar-cd/berth/testing/fixtures"
	"github.com/oar-cd/berth/testing/mocks"
)

func setupApp(t *testing.T) *mocks.Runner {
	t.Helper()
	cfg := fixtures.HostConfig(t.TempDir())
	require.NoError(t, app.InitializeWithConfig(&cfg, nil))
	r := mocks.NewRunner()
	app.SetRunnerForTesting(r)
	return r
}

func TestNewCmdStart(t *testing.T) {
	cmd := NewCmdStart()

	// Test command configuration
	assert.Equal(t, "start", cmd.Use)
	assert.Equal(t, "Start the deployed service", cmd.Short)
	assert.Contains(t, cmd.Long, "systemctl start")

	// Test that RunE is set
	assert.NotNil(t, cmd.RunE)

	// Test command has no subcommands by default
	assert.Empty(t, cmd.Commands())
	assert.True(t, cmd.Runnable())
}

func TestRunStart(t *testing.T) {
	tests := []struct {
		name        string
		response    mocks.Response
		expectError bool
		expectedOut string
	}{
		{
			name:        "started",
			expectedOut: "Service started successfully",
		},
		{
			name:        "systemctl fails",
			response:    mocks.Response{ExitCode: 1, Stderr: "Unit not found"},
			expectError: true,
			expectedOut: "Starting service...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupApp(t)
			r.On("systemctl start", tt.response)

			var buf bytes.Buffer
			cmd := NewCmdStart()
			cmd.SetOut(&buf)
			cmd.SetErr(&buf)
			cmd.SetArgs([]string{})

			err := cmd.Execute()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "Unit not found")
				assert.True(t, cmd.SilenceUsage)
				assert.NotContains(t, buf.String(), "Usage:")
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, buf.String(), tt.expectedOut)
			assert.Equal(t, []string{"systemctl start tama-server"}, r.Commands())
		})
	}
}

func TestNewCmdStart_RejectsArgs(t *testing.T) {
	setupApp(t)
	cmd := NewCmdStart()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}

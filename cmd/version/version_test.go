package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/app"
)

func TestNewCmdVersion(t *testing.T) {
	cmd := NewCmdVersion()

	// Test command configuration
	assert.Equal(t, "version", cmd.Use)
	assert.Equal(t, "Show version information", cmd.Short)
	assert.Contains(t, cmd.Long, "Display version information for berth")

	// Test that RunE is set
	assert.NotNil(t, cmd.RunE)

	// Test command has no flags
	assert.Empty(t, cmd.Flags().FlagUsages())

	// Test command has no subcommands by default
	assert.Empty(t, cmd.Commands())
}

func TestVersionVariable(t *testing.T) {
	// Test that Version has a default value
	assert.NotEmpty(t, app.Version)
	assert.Equal(t, "dev", app.Version) // Default build-time value
}

func TestRunVersion(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewCmdVersion()
	cmd.SetOut(&buf)

	require.NoError(t, runVersion(cmd))
	assert.Equal(t, "dev\n", buf.String())
}

package provision

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/testing/fixtures"
)

func TestDirectories_Ensure(t *testing.T) {
	h, _, out := newTestHost(t)
	dirs := NewDirectories(h)

	require.NoError(t, dirs.Ensure(context.Background()))

	assert.DirExists(t, h.Config.LogDir)
	assert.DirExists(t, h.Config.DataDir)
	assert.DirExists(t, filepath.Dir(h.Config.EnvFile))
	assert.Contains(t, out.String(), "database and application data")
}

func TestDirectories_Ensure_KeepsContents(t *testing.T) {
	h, _, _ := newTestHost(t)
	database := h.Config.DatabasePath()
	serverLog := h.Config.ServerLogPath()
	require.NoError(t, fixtures.WriteFile(database, "rows", 0o640))
	require.NoError(t, fixtures.WriteFile(serverLog, "started\n", 0o640))

	require.NoError(t, NewDirectories(h).Ensure(context.Background()))
	require.NoError(t, NewDirectories(h).Ensure(context.Background()))

	assert.Equal(t, "rows", readFile(t, database))
	assert.Equal(t, "started\n", readFile(t, serverLog))
}

func TestDirectories_List(t *testing.T) {
	h, _, _ := newTestHost(t)

	list := NewDirectories(h).List()
	require.Len(t, list, 3)
	assert.Equal(t, h.Config.LogDir, list[0].Path)
	assert.Equal(t, h.Config.DataDir, list[1].Path)
	assert.Equal(t, filepath.Dir(h.Config.EnvFile), list[2].Path)
}

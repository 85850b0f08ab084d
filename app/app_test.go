package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/testing/fixtures"
	"github.com/oar-cd/berth/testing/mocks"
)

func reset(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = Close()
		appConfig = nil
		cmdRunner = nil
		gitService = nil
	})
}

func TestGetters_BeforeInitialize(t *testing.T) {
	reset(t)
	appConfig = nil

	_, err := GetConfig()
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = GetJournal()
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = NewHost(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitializeWithConfig_NilConfig(t *testing.T) {
	reset(t)
	err := InitializeWithConfig(nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitializeWithConfig(t *testing.T) {
	reset(t)
	cfg := fixtures.HostConfig(t.TempDir())

	require.NoError(t, InitializeWithConfig(&cfg, &bytes.Buffer{}))

	got, err := GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "tama-server", got.ServiceName)
	assert.NotNil(t, GetRunner())

	r := &mocks.Runner{}
	SetRunnerForTesting(r)
	assert.Same(t, r, GetRunner())
}

func TestGetJournal_CreatesStateDir(t *testing.T) {
	reset(t)
	cfg := fixtures.HostConfig(t.TempDir())
	require.NoError(t, InitializeWithConfig(&cfg, &bytes.Buffer{}))

	j, err := GetJournal()
	require.NoError(t, err)
	require.NotNil(t, j)

	_, err = os.Stat(cfg.JournalPath())
	assert.NoError(t, err)

	again, err := GetJournal()
	require.NoError(t, err)
	assert.Same(t, j, again)

	require.NoError(t, Close())
	assert.NoError(t, Close())
}

func TestNewPipeline(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		wantErr bool
	}{
		{"known account", "root", false},
		{"unknown account", "berth-no-such-user", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset(t)
			cfg := fixtures.HostConfig(t.TempDir())
			cfg.ServiceUser = tt.user
			cfg.ServiceGroup = tt.user
			require.NoError(t, InitializeWithConfig(&cfg, &bytes.Buffer{}))

			p, err := NewPipeline(&bytes.Buffer{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "resolving service account")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
			assert.FileExists(t, filepath.Join(cfg.StateDir, "berth.db"))
		})
	}
}

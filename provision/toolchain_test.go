package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/testing/mocks"
)

func TestToolchain_Check(t *testing.T) {
	h, r, out := newTestHost(t)
	r.On("sudo -u tama bash -c source $HOME/.cargo/env && cargo --version",
		mocks.Response{Stdout: "cargo 1.82.0 (8f40fc59f 2024-08-21)\n"})

	version, err := NewToolchain(h).Check(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "cargo 1.82.0 (8f40fc59f 2024-08-21)", version)
	assert.Contains(t, out.String(), "Rust installed: cargo 1.82.0")
}

func TestToolchain_Check_Missing(t *testing.T) {
	h, r, out := newTestHost(t)
	r.Missing["cargo"] = true

	_, err := NewToolchain(h).Check(context.Background())

	assert.ErrorIs(t, err, ErrToolchainMissing)
	assert.Empty(t, r.Calls)
	assert.Contains(t, out.String(), "rustup.rs")
}

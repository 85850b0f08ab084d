package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_String(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"no args", New("nginx"), "nginx"},
		{"with args", New("systemctl", "enable", "tama-server"), "systemctl enable tama-server"},
		{"run as", RunAs("tama", "cd /srv && make"), "sudo -u tama bash -c cd /srv && make"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.cmd.String())
		})
	}
}

func TestCommand_Builders(t *testing.T) {
	assert.True(t, New("true").FailFast)
	assert.False(t, Tolerant("true").FailFast)

	cmd := Tolerant("journalctl", "-f").Streaming().In("/tmp")
	assert.True(t, cmd.Stream)
	assert.Equal(t, "/tmp", cmd.Dir)
	assert.False(t, cmd.FailFast)
}

func TestExecRunner_Success(t *testing.T) {
	var out bytes.Buffer
	r := NewExecRunner(&out)

	result, err := r.Run(context.Background(), New("sh", "-c", "echo hello"))
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Contains(t, out.String(), "Running: sh -c echo hello")
	assert.Contains(t, out.String(), "hello")
}

func TestExecRunner_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := NewExecRunner(nil)

	result, err := r.Run(context.Background(), New("pwd").In(dir))
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, dir)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		wantErr  bool
		exitCode int
	}{
		{"fail fast", New("sh", "-c", "echo broken >&2; exit 3"), true, 3},
		{"tolerant", Tolerant("sh", "-c", "echo broken >&2; exit 3"), false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := NewExecRunner(&out)

			result, err := r.Run(context.Background(), tt.cmd)
			require.NotNil(t, result)
			assert.Equal(t, tt.exitCode, result.ExitCode)
			assert.Equal(t, "broken\n", result.Stderr)
			assert.Contains(t, out.String(), "Command failed with exit code 3")

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var cmdErr *CommandError
			require.ErrorAs(t, err, &cmdErr)
			assert.Equal(t, 3, cmdErr.Result.ExitCode)
			assert.Contains(t, err.Error(), "exit code 3")
			assert.Contains(t, err.Error(), "broken")
		})
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"fail fast", New("berth-definitely-missing-binary")},
		{"tolerant", Tolerant("berth-definitely-missing-binary")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewExecRunner(nil)
			_, err := r.Run(context.Background(), tt.cmd)
			require.Error(t, err)

			var cmdErr *CommandError
			assert.False(t, errors.As(err, &cmdErr))
		})
	}
}

func TestExecRunner_Cancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := NewExecRunner(nil)
	_, err := r.Run(ctx, Tolerant("sleep", "5"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecRunner_Stream(t *testing.T) {
	var out bytes.Buffer
	r := NewExecRunner(&out)

	result, err := r.Run(context.Background(), New("sh", "-c", "echo streamed; echo oops >&2").Streaming())
	require.NoError(t, err)

	assert.Empty(t, result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.Contains(t, out.String(), "streamed")
	assert.Contains(t, out.String(), "oops")
}

func TestExecRunner_LookPath(t *testing.T) {
	r := NewExecRunner(nil)

	path, err := r.LookPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = r.LookPath("berth-definitely-missing-binary")
	assert.Error(t, err)
}

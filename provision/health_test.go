package provision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/testing/mocks"
)

func TestHealth_Start(t *testing.T) {
	tests := []struct {
		name        string
		statusExit  int
		wantRunning bool
	}{
		{name: "running", statusExit: 0, wantRunning: true},
		{name: "not running", statusExit: 3, wantRunning: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, r, _ := newTestHost(t)
			r.On("systemctl status", mocks.Response{ExitCode: tt.statusExit})

			var slept time.Duration
			h.Sleep = func(ctx context.Context, d time.Duration) error {
				slept = d
				return nil
			}

			running, err := NewHealth(h, NewServiceUnit(h)).Start(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantRunning, running)
			assert.Equal(t, 2*time.Second, slept)
			assert.Equal(t, []string{
				"systemctl daemon-reload",
				"systemctl enable tama-server",
				"systemctl start tama-server",
				"systemctl status tama-server",
			}, r.Commands())
		})
	}
}

func TestHealth_Start_EnableFailureIsFatal(t *testing.T) {
	h, r, _ := newTestHost(t)
	r.On("systemctl enable", mocks.Response{ExitCode: 1})

	running, err := NewHealth(h, NewServiceUnit(h)).Start(context.Background())

	require.Error(t, err)
	assert.False(t, running)
	assert.False(t, r.Ran("systemctl start"))
}

func TestHealth_Start_CancelledWhileSettling(t *testing.T) {
	h, r, _ := newTestHost(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := NewHealth(h, NewServiceUnit(h)).Start(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, r.Ran("systemctl status"))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, SleepContext(ctx, 0), context.Canceled)
}

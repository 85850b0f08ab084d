package provision

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oar-cd/berth/testing/fixtures"
	"github.com/oar-cd/berth/testing/mocks"
)

// newTestHost returns a Host rooted in a temp dir, owned by the current user,
// whose sleeps return immediately.
func newTestHost(t *testing.T) (*Host, *mocks.Runner, *bytes.Buffer) {
	t.Helper()

	r := mocks.NewRunner()
	out := &bytes.Buffer{}
	h := &Host{
		Config:     fixtures.HostConfig(t.TempDir()),
		Runner:     r,
		Owner:      CurrentOwnership(),
		Privileged: CurrentOwnership(),
		Out:        out,
		Sleep: func(ctx context.Context, d time.Duration) error {
			return ctx.Err()
		},
	}
	return h, r, out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func fileMode(t *testing.T, path string) os.FileMode {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Mode().Perm()
}

func requireNotice(t *testing.T, err error, kind NoticeKind) *Notice {
	t.Helper()
	require.Error(t, err)
	n, ok := AsNotice(err)
	require.True(t, ok, "expected a notice, got %v", err)
	require.Equal(t, kind, n.Kind)
	return n
}

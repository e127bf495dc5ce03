package executil

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stdout, "out")
	assert.Contains(t, res.Stderr, "err")
}

func TestExecRunnerTimeout(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewExecRunner().Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 2"}})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestExecRunnerMissingBinary(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestFakeRunner(t *testing.T) {
	f := &FakeRunner{
		Paths: map[string]string{"gs": "/usr/bin/gs"},
		Handler: func(_ context.Context, cmd Command) (Result, error) {
			return Result{Stdout: "10.02.1\n"}, nil
		},
	}

	p, err := f.LookPath("gs")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/gs", p)

	_, err = f.LookPath("heif-enc")
	assert.ErrorIs(t, err, exec.ErrNotFound)

	res, err := f.Run(context.Background(), Command{Name: "gs", Args: []string{"--version"}})
	require.NoError(t, err)
	assert.Equal(t, "10.02.1\n", res.Stdout)
	assert.Equal(t, 1, f.CallCount())
}

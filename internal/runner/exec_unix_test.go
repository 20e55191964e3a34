//go:build unix

package runner

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/violenttestpen/mtime/internal/rusage"
)

func TestProcessExecutor_Run(t *testing.T) {
	e := NewProcessExecutor(nil)

	t.Run("captures output", func(t *testing.T) {
		res, err := e.Run(context.Background(), []string{"/bin/sh", "-c", "echo out; echo err >&2"})
		require.NoError(t, err)
		assert.Equal(t, "out\n", string(res.Stdout))
		assert.Equal(t, "err\n", string(res.Stderr))
		assert.Zero(t, res.ExitCode)
		assert.Positive(t, res.Wall)
	})

	t.Run("non-zero exit is a result", func(t *testing.T) {
		res, err := e.Run(context.Background(), []string{"/bin/sh", "-c", "exit 3"})
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
	})

	t.Run("missing executable fails to launch", func(t *testing.T) {
		_, err := e.Run(context.Background(), []string{"/nonexistent/mtime-test-binary"})
		require.ErrorIs(t, err, ErrLaunch)
	})

	t.Run("empty argv fails to launch", func(t *testing.T) {
		_, err := e.Run(context.Background(), nil)
		require.ErrorIs(t, err, ErrLaunch)
	})
}

func TestForwardOutput(t *testing.T) {
	out := Output{Stdout: []byte("stdout"), Stderr: []byte("stderr")}

	var stdout, stderr bytes.Buffer
	require.NoError(t, ForwardOutput(&stdout, &stderr, false)(out))
	assert.Equal(t, "stdout", stdout.String())
	assert.Equal(t, "stderr", stderr.String())

	stdout.Reset()
	stderr.Reset()
	require.NoError(t, ForwardOutput(&stdout, &stderr, true)(out))
	assert.Empty(t, stdout.String())
	assert.Equal(t, "stderr", stderr.String())
}

func TestRunner_Execute_RealProcesses(t *testing.T) {
	sampler, err := rusage.NewChildSampler()
	require.NoError(t, err)
	defer sampler.Close()

	log, _ := test.NewNullLogger()
	r := New(log, NewProcessExecutor(sampler), sampler)

	metrics, err := r.Execute(context.Background(), Config{
		Command: []string{"/bin/sh", "-c", "exit 1"},
		Runs:    3,
	})
	require.NoError(t, err)
	require.Len(t, metrics, 3)
	for _, m := range metrics {
		assert.Equal(t, 1, m.ExitCode)
		assert.Positive(t, m.Wall)
		assert.GreaterOrEqual(t, m.User, time.Duration(0))
		assert.GreaterOrEqual(t, m.System, time.Duration(0))
	}
}

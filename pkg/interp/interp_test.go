package interp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := FindInterpreter("sh")
	require.NoError(t, err, "process session tests need sh on PATH")
	return sh
}

func TestProcessSession_CombinedOutput(t *testing.T) {
	sh := requireShell(t)
	s := NewProcessSession(sh, WithArgs("-c", "cat; echo oops >&2"))

	out, err := s.Run(context.Background(), "hello\n")
	require.NoError(t, err)
	assert.Equal(t, "hello\noops\n", out)
}

func TestProcessSession_NonZeroExitKeepsOutput(t *testing.T) {
	sh := requireShell(t)
	s := NewProcessSession(sh, WithArgs("-c", "echo partial; exit 3"))

	out, err := s.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "partial\n", out)
}

func TestProcessSession_Env(t *testing.T) {
	sh := requireShell(t)
	s := NewProcessSession(sh, WithArgs("-c", "echo $MOD2DOCTEST_TEST_VAR"), WithEnv("MOD2DOCTEST_TEST_VAR=set"))

	out, err := s.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "set\n", out)
}

func TestProcessSession_Dir(t *testing.T) {
	sh := requireShell(t)
	dir := t.TempDir()
	s := NewProcessSession(sh, WithArgs("-c", "ls"), WithDir(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), nil, 0o600))

	out, err := s.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "marker.txt")
}

func TestProcessSession_Timeout(t *testing.T) {
	sh := requireShell(t)
	s := NewProcessSession(sh, WithArgs("-c", "exec sleep 5"), WithTimeout(50*time.Millisecond))

	_, err := s.Run(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "error = %v", err)
}

func TestProcessSession_MissingBinary(t *testing.T) {
	s := NewProcessSession("/nonexistent/python-xyz")
	_, err := s.Run(context.Background(), "")
	assert.Error(t, err)
}

func TestProcessSession_Command(t *testing.T) {
	s := NewProcessSession("python3", WithArgs("-i", "-u"))
	assert.Equal(t, "python3 -i -u", s.Command())
	assert.Equal(t, "python3 -i", NewProcessSession("python3").Command())
}

func TestRecordedSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte(">>> 1\n1\n"), 0o600))

	out, err := NewRecordedSession(path).Run(context.Background(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, ">>> 1\n1\n", out)

	_, err = NewRecordedSession(filepath.Join(t.TempDir(), "missing")).Run(context.Background(), "")
	assert.Error(t, err)
}

func TestRecordedSession_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRecordedSession("unused").Run(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.out")
	inner := SessionFunc(func(_ context.Context, input string) (string, error) {
		return strings.ToUpper(input), nil
	})

	out, err := NewRecorder(inner, path).Run(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(data))
}

func TestRecorder_PropagatesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.out")
	boom := errors.New("boom")
	inner := SessionFunc(func(context.Context, string) (string, error) {
		return "", boom
	})

	_, err := NewRecorder(inner, path).Run(context.Background(), "")
	assert.ErrorIs(t, err, boom)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be recorded on failure")
}

func TestFindInterpreter_Explicit(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "mypython")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o700))

	got, err := FindInterpreter(exe)
	require.NoError(t, err)
	assert.Equal(t, exe, got)

	notExec := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(notExec, nil, 0o600))
	_, err = FindInterpreter(notExec)
	assert.ErrorIs(t, err, ErrNoInterpreter)

	_, err = FindInterpreter("no-such-interpreter-xyz")
	assert.ErrorIs(t, err, ErrNoInterpreter)
}

func TestFindInterpreter_VirtualEnv(t *testing.T) {
	venv := t.TempDir()
	bin := filepath.Join(venv, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o750))
	exe := filepath.Join(bin, "python3")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o700))

	t.Setenv("VIRTUAL_ENV", venv)
	got, err := FindInterpreter("")
	require.NoError(t, err)
	assert.Equal(t, exe, got)
}

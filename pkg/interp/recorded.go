package interp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// RecordedSession replays output captured by an earlier run instead of
// starting an interpreter.
type RecordedSession struct {
	path string
}

// NewRecordedSession replays the output stored at path.
func NewRecordedSession(path string) *RecordedSession {
	return &RecordedSession{path: path}
}

// Run ignores input and returns the recorded output.
func (s *RecordedSession) Run(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// #nosec G304 - path is provided by user via CLI
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("reading recorded output: %w", err)
	}
	return string(data), nil
}

// Recorder wraps a Session and saves every output it produces to a file.
type Recorder struct {
	session Session
	path    string
}

// NewRecorder records the output of session to path.
func NewRecorder(session Session, path string) *Recorder {
	return &Recorder{session: session, path: path}
}

// Run runs the wrapped session and writes its output before returning it.
func (r *Recorder) Run(ctx context.Context, input string) (string, error) {
	out, err := r.session.Run(ctx, input)
	if err != nil {
		return out, err
	}
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return out, fmt.Errorf("creating record directory: %w", err)
		}
	}
	if err := os.WriteFile(r.path, []byte(out), 0o600); err != nil {
		return out, fmt.Errorf("writing recorded output: %w", err)
	}
	return out, nil
}

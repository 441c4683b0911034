// Package sink delivers finished documents to their destination: checking
// for an existing file, showing a diff, confirming the overwrite and writing
// atomically under an advisory lock.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Sentinel errors surfaced to callers unchanged.
var (
	ErrLocked   = errors.New("destination is locked by another writer")
	ErrDeclined = errors.New("overwrite declined")
)

// Outcome describes what a Sink did with a document.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeWritten
	OutcomeUnchanged
	OutcomeDeclined
	OutcomeSent
)

// String returns the outcome name used in reports.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeWritten:
		return "written"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeDeclined:
		return "declined"
	case OutcomeSent:
		return "sent"
	default:
		return "unknown"
	}
}

// Sink receives a finished document and a destination identifier.
type Sink interface {
	Put(ctx context.Context, dest string, doc []byte) (Outcome, error)
}

// WriterSink writes every document to a single writer.
type WriterSink struct {
	W io.Writer
}

// Put writes doc to the writer.
func (s WriterSink) Put(_ context.Context, _ string, doc []byte) (Outcome, error) {
	if _, err := s.W.Write(doc); err != nil {
		return OutcomeDeclined, fmt.Errorf("writing document: %w", err)
	}
	return OutcomeWritten, nil
}

// FileSink writes documents to files.
type FileSink struct {
	confirmer Confirmer
	differ    Differ
	diffOut   io.Writer
	lock      bool
	perm      os.FileMode
	logger    *zap.Logger
}

// FileOption configures a FileSink.
type FileOption func(*FileSink)

// WithConfirmer sets how overwrites are confirmed (default: always yes).
func WithConfirmer(c Confirmer) FileOption {
	return func(s *FileSink) {
		if c != nil {
			s.confirmer = c
		}
	}
}

// WithDiffer sets how differences are shown (default: unified diff).
func WithDiffer(d Differ) FileOption {
	return func(s *FileSink) {
		if d != nil {
			s.differ = d
		}
	}
}

// WithDiffOutput sets where diffs are printed. nil disables diff output.
func WithDiffOutput(w io.Writer) FileOption {
	return func(s *FileSink) {
		s.diffOut = w
	}
}

// WithLocking toggles the advisory lock (default on).
func WithLocking(enabled bool) FileOption {
	return func(s *FileSink) {
		s.lock = enabled
	}
}

// WithFileLogger sets the logger.
func WithFileLogger(l *zap.Logger) FileOption {
	return func(s *FileSink) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFileSink creates a FileSink.
func NewFileSink(opts ...FileOption) *FileSink {
	s := &FileSink{
		confirmer: AlwaysYes{},
		differ:    UnifiedDiffer{},
		lock:      true,
		perm:      0o644,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put writes doc to dest. A new file is created without asking. An existing
// file with identical content is left alone. Otherwise the diff is shown
// and the overwrite must be confirmed.
func (s *FileSink) Put(ctx context.Context, dest string, doc []byte) (Outcome, error) {
	if s.lock {
		lock, err := AcquireLock(dest)
		if err != nil {
			return OutcomeDeclined, err
		}
		defer func() {
			if rerr := lock.Release(); rerr != nil {
				s.logger.Warn("failed to release lock", zap.String("lock", lock.Path()), zap.Error(rerr))
			}
		}()
	}

	// #nosec G304 - destination is provided by user via CLI
	existing, err := os.ReadFile(dest)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := writeAtomic(dest, doc, s.perm); err != nil {
			return OutcomeDeclined, err
		}
		s.logger.Info("document created", zap.String("dest", dest), zap.Int("bytes", len(doc)))
		return OutcomeCreated, nil
	case err != nil:
		return OutcomeDeclined, fmt.Errorf("reading existing destination: %w", err)
	}

	if bytes.Equal(existing, doc) {
		s.logger.Info("document unchanged", zap.String("dest", dest))
		return OutcomeUnchanged, nil
	}

	if s.diffOut != nil {
		diff, err := s.differ.Diff(ctx, dest, existing, doc)
		if err != nil {
			return OutcomeDeclined, err
		}
		if _, err := io.WriteString(s.diffOut, diff); err != nil {
			return OutcomeDeclined, fmt.Errorf("writing diff: %w", err)
		}
	}

	ok, err := s.confirmer.Confirm(fmt.Sprintf("Overwrite %s?", dest))
	if err != nil {
		return OutcomeDeclined, err
	}
	if !ok {
		return OutcomeDeclined, ErrDeclined
	}

	info, statErr := os.Stat(dest)
	perm := s.perm
	if statErr == nil {
		perm = info.Mode().Perm()
	}
	if err := writeAtomic(dest, doc, perm); err != nil {
		return OutcomeDeclined, err
	}
	s.logger.Info("document written", zap.String("dest", dest), zap.Int("bytes", len(doc)))
	return OutcomeWritten, nil
}

// writeAtomic writes data to a temp file in the destination directory and
// renames it into place.
func writeAtomic(dest string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// Package source locates and reads the program sources to convert.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// StdinName is the pseudo path that selects standard input.
const StdinName = "-"

// ErrNotText is returned for sources that are not valid UTF-8.
var ErrNotText = errors.New("source is not valid UTF-8 text")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// File is a loaded source.
type File struct {
	// Path is the path the source was read from, or "-" for stdin.
	Path string

	// Name is the base name without extension, used in reports.
	Name string

	// Text is the decoded source with any byte order mark removed.
	Text string
}

// Load reads the source at path. The path "-" reads standard input.
func Load(path string) (*File, error) {
	if path == StdinName {
		return Read(os.Stdin, StdinName)
	}

	f, err := os.Open(path) // #nosec G304 -- user-provided source path is expected
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("reading source: %s is a directory", path)
	}

	return Read(f, path)
}

// Read decodes a source from r.
func Read(r io.Reader, path string) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotText)
	}

	return &File{
		Path: path,
		Name: baseName(path),
		Text: string(data),
	}, nil
}

func baseName(path string) string {
	if path == StdinName {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DefaultDestination returns the document path written next to src:
// "pkg/mod.py" with suffix "_doctest" becomes "pkg/mod_doctest.py".
func DefaultDestination(src, suffix string) string {
	dir, base := filepath.Split(src)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+suffix+ext)
}

// IsGenerated reports whether path looks like a document produced with
// suffix, so that globbing a directory does not convert its own output.
func IsGenerated(path, suffix string) bool {
	if suffix == "" {
		return false
	}
	base := filepath.Base(path)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), suffix)
}

// ExpandGlobs expands a list of file paths and glob patterns into a deduplicated
// list of matching file paths. Patterns that don't match any files are returned as-is
// (the caller should handle file-not-found errors). The stdin marker is kept
// in place.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		if pattern == StdinName {
			if !seen[pattern] {
				seen[pattern] = true
				result = append(result, pattern)
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			// Pattern didn't match anything - include it as literal path
			// This allows for explicit file paths and better error messages later
			if !seen[pattern] {
				seen[pattern] = true
				result = append(result, pattern)
			}
			continue
		}

		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				result = append(result, match)
			}
		}
	}

	// Sort for deterministic ordering
	sort.Strings(result)

	return result, nil
}

// Discover expands patterns and drops generated documents matched by a glob.
// Explicitly named files are always kept.
func Discover(patterns []string, suffix string) ([]string, error) {
	explicit := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		explicit[p] = true
	}

	paths, err := ExpandGlobs(patterns)
	if err != nil {
		return nil, err
	}

	kept := paths[:0]
	for _, p := range paths {
		if !explicit[p] && IsGenerated(p, suffix) {
			continue
		}
		kept = append(kept, p)
	}
	return kept, nil
}

package interp

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNoInterpreter is returned when no interpreter binary can be located.
var ErrNoInterpreter = errors.New("interpreter not found")

// DefaultCandidates are tried in order when no interpreter is configured.
var DefaultCandidates = []string{"python3", "python"}

// FindInterpreter resolves the interpreter to run. It searches in order:
//  1. The explicit name or path, if given
//  2. The active virtualenv ($VIRTUAL_ENV/bin)
//  3. DefaultCandidates anywhere in PATH
//
// An explicit name that cannot be resolved is an error; there is no fallback.
func FindInterpreter(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if strings.ContainsRune(explicit, filepath.Separator) {
			if isExecutable(explicit) {
				return explicit, nil
			}
			return "", ErrNoInterpreter
		}
		if path, err := exec.LookPath(explicit); err == nil {
			return path, nil
		}
		return "", ErrNoInterpreter
	}

	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		bin := "bin"
		if runtime.GOOS == "windows" {
			bin = "Scripts"
		}
		for _, name := range DefaultCandidates {
			candidate := filepath.Join(venv, bin, name)
			if isExecutable(candidate) {
				return candidate, nil
			}
		}
	}

	for _, name := range DefaultCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoInterpreter
}

// isExecutable checks if a file exists and is executable.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}

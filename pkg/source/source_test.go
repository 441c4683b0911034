package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFprint(1)\n"), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Text != "print(1)\n" {
		t.Errorf("Text = %q, want BOM stripped", f.Text)
	}
	if f.Name != "mod" {
		t.Errorf("Name = %q, want %q", f.Name, "mod")
	}
	if f.Path != path {
		t.Errorf("Path = %q, want %q", f.Path, path)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.py")); err == nil {
		t.Error("Load() expected error for missing file")
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load() expected error for directory")
	}

	bin := filepath.Join(dir, "blob.py")
	if err := os.WriteFile(bin, []byte{0xff, 0xfe, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bin); !errors.Is(err, ErrNotText) {
		t.Errorf("Load() error = %v, want ErrNotText", err)
	}
}

func TestRead_Stdin(t *testing.T) {
	f, err := Read(strings.NewReader("x = 1\n"), StdinName)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if f.Name != "stdin" {
		t.Errorf("Name = %q, want %q", f.Name, "stdin")
	}
}

func TestDefaultDestination(t *testing.T) {
	tests := []struct {
		src    string
		suffix string
		want   string
	}{
		{"mod.py", "_doctest", "mod_doctest.py"},
		{filepath.Join("pkg", "mod.py"), "_doctest", filepath.Join("pkg", "mod_doctest.py")},
		{"script", "_doc", "script_doc"},
		{"archive.tar.py", "_doctest", "archive.tar_doctest.py"},
	}

	for _, tt := range tests {
		if got := DefaultDestination(tt.src, tt.suffix); got != tt.want {
			t.Errorf("DefaultDestination(%q, %q) = %q, want %q", tt.src, tt.suffix, got, tt.want)
		}
	}
}

func TestIsGenerated(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"mod_doctest.py", true},
		{filepath.Join("a", "b_doctest.py"), true},
		{"mod.py", false},
		{"doctest.py", false},
	}

	for _, tt := range tests {
		if got := IsGenerated(tt.path, "_doctest"); got != tt.want {
			t.Errorf("IsGenerated(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if IsGenerated("mod_doctest.py", "") {
		t.Error("IsGenerated() with empty suffix should be false")
	}
}

func TestExpandGlobs_GlobPattern(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"a.py", "b.py", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	result, err := ExpandGlobs([]string{filepath.Join(dir, "*.py")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 2 {
		t.Errorf("ExpandGlobs() returned %d files, want 2", len(result))
	}
}

func TestExpandGlobs_NoMatchAndStdin(t *testing.T) {
	dir := t.TempDir()
	pattern := filepath.Join(dir, "*.nonexistent")

	result, err := ExpandGlobs([]string{pattern, StdinName, pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 2 {
		t.Errorf("ExpandGlobs() = %v, want pattern and stdin once each", result)
	}
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	_, err := ExpandGlobs([]string{"[invalid"})
	if err == nil {
		t.Error("ExpandGlobs() expected error for invalid pattern")
	}
}

func TestDiscover_SkipsGeneratedMatches(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"mod.py", "mod_doctest.py", "other.py"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Discover([]string{filepath.Join(dir, "*.py")}, "_doctest")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := []string{filepath.Join(dir, "mod.py"), filepath.Join(dir, "other.py")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Discover() = %v, want %v", got, want)
	}

	explicit := filepath.Join(dir, "mod_doctest.py")
	got, err = Discover([]string{explicit}, "_doctest")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(got) != 1 || got[0] != explicit {
		t.Errorf("Discover() = %v, want explicitly named file kept", got)
	}
}

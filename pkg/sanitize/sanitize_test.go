package sanitize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryIDRule(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "module object",
			input: "<__main__.Foo object at 0x7f3a2c1d9e80>",
			want:  "<...Foo object at 0x...>",
		},
		{
			name:  "dotted path",
			input: "<pkg.sub.Bar instance at 0x00ABCDEF>",
			want:  "<...Bar instance at 0x...>",
		},
		{
			name:  "function",
			input: "<function f at 0x10a2b3c4d>",
			want:  "<...function f at 0x...>",
		},
		{
			name:  "two in one line",
			input: "[<a.A object at 0x1>, <b.B object at 0x2>]",
			want:  "[<...A object at 0x...>, <...B object at 0x...>]",
		},
		{
			name:  "no address",
			input: "<class 'int'>",
			want:  "<class 'int'>",
		},
	}

	r := MemoryIDRule()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Apply(tt.input); got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMemoryIDRule_Idempotent(t *testing.T) {
	inputs := []string{
		"<__main__.Foo object at 0x7f3a2c1d9e80>",
		"x = <function f at 0xdeadbeef> and <m.C object at 0x1>",
		"nothing here",
	}

	r := MemoryIDRule()
	for _, in := range inputs {
		once := r.Apply(in)
		twice := r.Apply(once)
		if once != twice {
			t.Errorf("not idempotent for %q: once %q, twice %q", in, once, twice)
		}
	}
}

func TestPathRule(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"absolute", "/home/user/project/module.py", ".../module.py"},
		{"quoted", `File "/usr/lib/python3/os.py", line 1`, `File ".../os.py", line 1`},
		{"two segments", "/tmp/x.txt", ".../x.txt"},
		{"single segment", "/tmp", "/tmp"},
		{"relative", "a/b/c.py", "a/b/c.py"},
		{"url", "http://example.com/a/b", "http://example.com/a/b"},
		{"already collapsed", ".../module.py", ".../module.py"},
	}

	s := New(Options{Paths: true})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Line(tt.input); got != tt.want {
				t.Errorf("Line(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWindowsPathRule(t *testing.T) {
	r := WindowsPathRule()
	got := r.Apply(`File "C:\Users\me\project\mod.py", line 3`)
	want := `File "...\mod.py", line 3`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTracebackRule(t *testing.T) {
	input := "Traceback (most recent call last):\n" +
		"  File \"a\", line 1\n" +
		"  File \"b\", line 2\n" +
		"KeyError: 'x'"
	want := "Traceback (most recent call last):\n    ...\nKeyError: 'x'"

	r := TracebackRule()
	got := r.Apply(input)
	if got != want {
		t.Errorf("Apply() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
	if again := r.Apply(got); again != got {
		t.Errorf("not idempotent: %q", again)
	}
}

func TestTracebackRule_Embedded(t *testing.T) {
	input := ">>> d['x']\n" +
		"Traceback (most recent call last):\n" +
		"  File \"<stdin>\", line 1, in <module>\n" +
		"KeyError: 'x'\n" +
		">>> 1\n1"
	want := ">>> d['x']\n" +
		"Traceback (most recent call last):\n" +
		"    ...\n" +
		"KeyError: 'x'\n" +
		">>> 1\n1"

	if got := TracebackRule().Apply(input); got != want {
		t.Errorf("Apply() mismatch (-want +got):\n%s", cmp.Diff(want, got))
	}
}

func TestTracebackRule_NoMatch(t *testing.T) {
	input := "everything is fine\n  indented\n"
	if got := TracebackRule().Apply(input); got != input {
		t.Errorf("Apply() changed non-matching text: %q", got)
	}
}

func TestSanitizer_Document_Order(t *testing.T) {
	input := "Traceback (most recent call last):\n" +
		"  File \"/home/u/proj/a.py\", line 4, in f\n" +
		"    return <m.X object at 0xff>\n" +
		"ValueError: bad /srv/data/in.csv"
	want := "Traceback (most recent call last):\n" +
		"    ...\n" +
		"ValueError: bad .../in.csv"

	got := New(DefaultOptions()).Document(input)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Document() mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizer_Toggles(t *testing.T) {
	input := "<m.X object at 0xff> /a/b/c"

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"all", DefaultOptions(), "<...X object at 0x...> .../c"},
		{"none", Options{}, input},
		{"memory only", Options{MemoryIDs: true}, "<...X object at 0x...> /a/b/c"},
		{"paths only", Options{Paths: true}, "<m.X object at 0xff> .../c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.opts).Document(input); got != tt.want {
				t.Errorf("Document() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizer_Rules(t *testing.T) {
	s := New(DefaultOptions())
	var names []string
	for _, r := range s.Rules() {
		names = append(names, r.Name)
	}
	want := []string{RuleMemoryIDs, RulePaths, RuleWindowsPath, RuleTracebacks}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("Rules() mismatch (-want +got):\n%s", diff)
	}
	if !s.HasBlockRules() {
		t.Error("HasBlockRules() = false, want true")
	}
	if New(Options{MemoryIDs: true}).HasBlockRules() {
		t.Error("HasBlockRules() = true, want false")
	}
}

func TestCompileRule(t *testing.T) {
	r, err := CompileRule("dates", `\d{4}-\d{2}-\d{2}`, "YYYY-MM-DD", "line")
	if err != nil {
		t.Fatalf("CompileRule() error = %v", err)
	}
	s := New(Options{}, r)
	if got := s.Line("today is 2024-01-15"); got != "today is YYYY-MM-DD" {
		t.Errorf("Line() = %q", got)
	}

	if _, err := CompileRule("", "x", "", "line"); err == nil {
		t.Error("CompileRule() expected error for empty name")
	}
	if _, err := CompileRule("bad", "(", "", "line"); err == nil {
		t.Error("CompileRule() expected error for invalid pattern")
	}
	if _, err := CompileRule("bad", "x", "", "paragraph"); err == nil {
		t.Error("CompileRule() expected error for invalid scope")
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{"", ScopeLine, false},
		{"line", ScopeLine, false},
		{"Document", ScopeDocument, false},
		{"block", ScopeDocument, false},
		{"x", ScopeLine, true},
	}
	for _, tt := range tests {
		got, err := ParseScope(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScope(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScope(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

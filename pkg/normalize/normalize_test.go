package normalize

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cart0113/mod2doctest/pkg/dialect"
)

func lines(s string) []string {
	return strings.Split(s, "\n")
}

func TestRepairIndentation_DedentInsertsBlank(t *testing.T) {
	d := dialect.Python()
	got := RepairIndentation(lines("def f():\n    pass\ndef g():\n    pass"), d)
	want := []string{"def f():", "    pass", "", "def g():", "    pass", "", "pass"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairIndentation_ContinuationKeywordExempt(t *testing.T) {
	d := dialect.Python()
	got := RepairIndentation(lines("if x:\n    pass\nelse:\n    pass"), d)
	want := []string{"if x:", "    pass", "else:", "    pass", "", "pass"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairIndentation_AllContinuationKeywords(t *testing.T) {
	d := dialect.Python()
	src := "try:\n    a()\nexcept ValueError:\n    b()\nelse:\n    c()\nfinally:\n    d()"
	got := RepairIndentation(lines(src), d)

	for i, line := range got[:len(got)-2] {
		if line == "" {
			t.Errorf("unexpected blank line at %d in %q", i, got)
		}
	}
}

func TestRepairIndentation_HeldLinesReindented(t *testing.T) {
	d := dialect.Python()
	src := "def f():\n    a = 1\n\n    # note\n    return a\n\nx = f()"
	got := RepairIndentation(lines(src), d)
	want := []string{
		"def f():",
		"    a = 1",
		"    ",
		"    # note",
		"    return a",
		"",
		"x = f()",
		"",
		"pass",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairIndentation_NoBlankWhenHoldBufferPresent(t *testing.T) {
	d := dialect.Python()
	got := RepairIndentation(lines("def f():\n    pass\n# comment\ndef g():\n    pass"), d)
	want := []string{"def f():", "    pass", "# comment", "def g():", "    pass", "", "pass"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairIndentation_TrailingWhitespaceTrimmed(t *testing.T) {
	d := dialect.Python()
	got := RepairIndentation([]string{"x = 1   "}, d)
	if got[0] != "x = 1" {
		t.Errorf("got %q, want %q", got[0], "x = 1")
	}
}

func TestRepairIndentation_TrailingComment(t *testing.T) {
	d := dialect.Python()
	got := RepairIndentation(lines("x = 1\n# the end"), d)
	want := []string{"x = 1", "# the end", "", "pass"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairIndentation_MultilineStringPassthrough(t *testing.T) {
	d := dialect.Python()
	src := "def f():\n    s = \"\"\"\nleft edge\n\n  indented   \n\"\"\"\n    return s"
	got := RepairIndentation(lines(src), d)
	want := []string{
		"def f():",
		"    s = \"\"\"",
		"left edge",
		"",
		"  indented   ",
		"\"\"\"",
		"    return s",
		"",
		"pass",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairIndentation_SingleLineStringDoesNotOpen(t *testing.T) {
	d := dialect.Python()
	src := "def f():\n    '''one line'''\nx = 1"
	got := RepairIndentation(lines(src), d)
	want := []string{"def f():", "    '''one line'''", "", "x = 1", "", "pass"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepairIndentation_BraceDialect(t *testing.T) {
	d := dialect.Python().Clone()
	d.IndentSensitive = false
	if err := d.Compile(); err != nil {
		t.Fatal(err)
	}

	got := RepairIndentation(lines("def f():\n    pass\ndef g():"), d)
	want := []string{"def f():", "    pass", "def g():", "", "pass"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestStripDocBlock(t *testing.T) {
	d := dialect.Python()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "double quotes",
			input: "\"\"\"Module doc.\n\nMore.\n\"\"\"\n\nimport os\n",
			want:  "import os\n",
		},
		{
			name:  "single quotes with leading blank",
			input: "\n'''doc'''\nx = 1",
			want:  "x = 1",
		},
		{
			name:  "raw prefix",
			input: "r\"\"\"raw \\d\"\"\"\nx = 1",
			want:  "x = 1",
		},
		{
			name:  "no doc block",
			input: "x = 1\n\"\"\"not first\"\"\"",
			want:  "x = 1\n\"\"\"not first\"\"\"",
		},
		{
			name:  "identifier starting with r",
			input: "result = 1",
			want:  "result = 1",
		},
		{
			name:    "unterminated",
			input:   "\"\"\"never closed\nx = 1",
			wantErr: ErrUnterminatedDocBlock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StripDocBlock(tt.input, d)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("StripDocBlock() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("StripDocBlock() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripMainGuard(t *testing.T) {
	d := dialect.Python()

	src := []string{
		"x = 1",
		"",
		"if __name__ == '__main__':",
		"    main()",
		"    ",
		"    more()",
		"",
		"y = 2",
	}
	want := []string{"x = 1", "", "y = 2"}

	if diff := cmp.Diff(want, StripMainGuard(src, d)); diff != "" {
		t.Errorf("StripMainGuard() mismatch (-want +got):\n%s", diff)
	}
}

func TestStripMainGuard_NestedUntouched(t *testing.T) {
	d := dialect.Python()

	src := []string{
		"def f():",
		"    if __name__ == '__main__':",
		"        g()",
	}
	if diff := cmp.Diff(src, StripMainGuard(src, d)); diff != "" {
		t.Errorf("StripMainGuard() changed nested guard (-want +got):\n%s", diff)
	}
}

func TestEscapePrompts(t *testing.T) {
	d := dialect.Python()

	got := EscapePrompts([]string{
		`print(">>> hi")`,
		`print("... more")`,
		`x = ...`,
		`f(..., 1)`,
	}, d)
	want := []string{
		`print("\>>> hi")`,
		`print("\... more")`,
		`x = ...`,
		`f(..., 1)`,
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EscapePrompts() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	got := NormalizeWhitespace("a\r\n\tb\rc", 4)
	want := "a\n    b\nc"
	if got != want {
		t.Errorf("NormalizeWhitespace() = %q, want %q", got, want)
	}

	if got := NormalizeWhitespace("\tx", 0); got != "    x" {
		t.Errorf("NormalizeWhitespace() with zero width = %q", got)
	}
}

func TestNormalizer_Normalize(t *testing.T) {
	src := "\"\"\"Doc.\"\"\"\r\n" +
		"import os\r\n" +
		"def f():\r\n" +
		"\treturn 1\r\n" +
		"print(f())\r\n" +
		"\r\n" +
		"if __name__ == \"__main__\":\r\n" +
		"\tf()\r\n"

	got, err := New(dialect.Python()).Normalize(src)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := "import os\n" +
		"def f():\n" +
		"    return 1\n" +
		"\n" +
		"print(f())\n" +
		"\n" +
		"pass\n"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizer_KeepMainGuard(t *testing.T) {
	src := "x = 1\nif __name__ == '__main__':\n    print(x)\n"

	got, err := New(dialect.Python(), WithMainGuardStripping(false)).Normalize(src)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !strings.Contains(got, "if __name__ == '__main__':\n    print(x)") {
		t.Errorf("Normalize() dropped main guard: %q", got)
	}
}

func TestNormalizer_WithTabWidth(t *testing.T) {
	got, err := New(dialect.Python(), WithTabWidth(2)).Normalize("if x:\n\ty = 1\n")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if !strings.Contains(got, "\n  y = 1\n") {
		t.Errorf("Normalize() = %q, want two-space indent", got)
	}
}

func TestNormalizer_UnterminatedDocBlock(t *testing.T) {
	_, err := New(dialect.Python()).Normalize("'''oops\nx = 1\n")
	if !errors.Is(err, ErrUnterminatedDocBlock) {
		t.Errorf("Normalize() error = %v, want ErrUnterminatedDocBlock", err)
	}
}

func TestNormalizer_EmptySource(t *testing.T) {
	got, err := New(dialect.Python()).Normalize("")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got != "pass\n" {
		t.Errorf("Normalize(\"\") = %q, want %q", got, "pass\n")
	}
}

func TestRepairIndentation_TrailingBlankLinesDropped(t *testing.T) {
	d := dialect.Python()
	got := RepairIndentation(lines("x = 1\n# the end\n\n\n"), d)
	want := []string{"x = 1", "# the end", "", "pass"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RepairIndentation() mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizer_TrailingNewline(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"single newline", "x = 1\n", "x = 1\n\npass\n"},
		{"several newlines", "x = 1\n\n\n", "x = 1\n\npass\n"},
		{"no newline", "x = 1", "x = 1\n\npass\n"},
		{"span then code", "#> Adding numbers\nx = 1\nx + 1\n", "#> Adding numbers\nx = 1\nx + 1\n\npass\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(dialect.Python()).Normalize(tt.src)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

package checks

import (
	"strings"
	"testing"

	"codespice/internal/config"
	"codespice/internal/diag"
	"codespice/internal/source"
)

func run(t *testing.T, a *Analyzer, path, content string, tweak func(*config.Config)) (*source.File, []diag.Diagnostic) {
	t.Helper()
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual(path, []byte(content)))
	cfg := config.Default()
	if tweak != nil {
		tweak(&cfg)
	}
	bag := diag.NewBag(0)
	a.Run(NewPass(f, cfg, diag.BagReporter{Bag: bag}))
	for _, d := range bag.Items() {
		if d.Tag() != a.Tag {
			t.Fatalf("%s reported %s under tag %v", a.Name, d.Code.ID(), d.Tag())
		}
	}
	return f, bag.Items()
}

func TestAllAnalyzersAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range All() {
		if seen[a.Name] {
			t.Fatalf("duplicate analyzer %q", a.Name)
		}
		seen[a.Name] = true
		if got, ok := Lookup(a.Name); !ok || got != a {
			t.Fatalf("Lookup(%q) failed", a.Name)
		}
	}
	if _, ok := Lookup("nope"); ok {
		t.Fatalf("unknown analyzer resolved")
	}
}

func TestEmptyDocumentIsClean(t *testing.T) {
	for _, a := range All() {
		t.Run(a.Name, func(t *testing.T) {
			_, diags := run(t, a, "empty.c", "", nil)
			if len(diags) != 0 {
				t.Fatalf("expected no diagnostics, got %d: %+v", len(diags), diags)
			}
		})
	}
}

func TestFileLength(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"401 lines", strings.Repeat("x\n", 400), 1},
		{"400 lines", strings.Repeat("x\n", 399) + "x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, diags := run(t, LineBudget, "a.c", tt.content, nil)
			if len(diags) != tt.want {
				t.Fatalf("expected %d diagnostics, got %d", tt.want, len(diags))
			}
			if tt.want == 0 {
				return
			}
			d := diags[0]
			if d.Code != diag.LineFileTooLong || d.Primary != f.FullSpan() {
				t.Fatalf("unexpected diagnostic %+v", d)
			}
			if d.Message != "Your code exceeds 400 lines. Consider refactoring." {
				t.Fatalf("message = %q", d.Message)
			}
		})
	}
}

func TestLineLength(t *testing.T) {
	content := "// header\n" + strings.Repeat("a", 81) + "\n" + strings.Repeat("b", 80) + "\n" + strings.Repeat("é", 80)
	f, diags := run(t, LineBudget, "a.c", content, nil)
	if len(diags) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(diags))
	}
	if diags[0].Primary != f.LineSpan(1) {
		t.Fatalf("span = %v, want line 1", diags[0].Primary)
	}
	if diags[0].Message != "Line exceeds the maximum length of 80 characters." {
		t.Fatalf("message = %q", diags[0].Message)
	}
}

func TestCommentHeader(t *testing.T) {
	tests := []struct {
		name    string
		content string
		require bool
		want    int
	}{
		{"missing", "int x;\n", true, 1},
		{"present", "  // main module\nint x;\n", true, 0},
		{"block comment does not count", "/* main */\nint x;\n", true, 1},
		{"disabled", "int x;\n", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := run(t, CommentHeader, "src/main.c", tt.content, func(c *config.Config) {
				c.Commenting.RequireHeader = tt.require
			})
			if len(diags) != tt.want {
				t.Fatalf("expected %d diagnostics, got %d", tt.want, len(diags))
			}
			if tt.want == 1 {
				d := diags[0]
				if !d.Primary.Empty() || d.Primary.Start != 0 {
					t.Fatalf("expected document start, got %v", d.Primary)
				}
				if len(d.Fixes) != 1 || d.Fixes[0].Edits[0].NewText != "// main.c\n" {
					t.Fatalf("unexpected fix %+v", d.Fixes)
				}
			}
		})
	}
}

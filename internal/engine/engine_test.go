package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"codespice/internal/checks"
	"codespice/internal/config"
	"codespice/internal/diag"
	"codespice/internal/observ"
	"codespice/internal/source"
	"codespice/internal/trace"
)

// sample triggers exactly one diagnostic per rule tag under sampleConfig.
var sample = strings.Join([]string{
	"int my_var;",
	"#define SWAP(a) \\",
	"  a++;",
	"int sum(int a, int b, int c, int d, int e) {",
	"  return 0;",
	"}",
	"// " + strings.Repeat("x", 90),
}, "\n")

// sampleConfig is the default configuration with camelCase naming enabled.
func sampleConfig() config.Config {
	cfg := config.Default()
	cfg.NamingConventions.Variable = config.CamelCase
	return cfg
}

func load(fs *source.FileSet, path, content string) *source.File {
	return fs.Get(fs.AddVirtual(path, []byte(content)))
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.c", true},
		{"dir/a.cpp", true},
		{"a.h", true},
		{"a.hpp", true},
		{"a.cc", false},
		{"a.py", false},
		{"Makefile", false},
		{"a.C", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.path); got != tt.want {
			t.Fatalf("Supported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestAnalyzeSample(t *testing.T) {
	fs := source.NewFileSet()
	set := New(Options{}).Analyze(context.Background(), load(fs, "s.c", sample), sampleConfig())
	for _, tag := range diag.Tags() {
		if n := set.Count(tag); n != 1 {
			t.Fatalf("tag %s: expected 1 diagnostic, got %d: %+v", tag, n, set.Get(tag))
		}
	}
	if set.Len() != len(diag.Tags()) || len(set.All()) != set.Len() {
		t.Fatalf("unexpected total %d", set.Len())
	}
}

func TestAnalyzeUnsupportedIsEmpty(t *testing.T) {
	fs := source.NewFileSet()
	set := New(Options{Start: true}).Analyze(context.Background(), load(fs, "s.py", sample), sampleConfig())
	if set.Len() != 0 {
		t.Fatalf("expected empty set, got %d", set.Len())
	}
	store := NewStore()
	if New(Options{Start: true}).Run(context.Background(), "s.py", load(fs, "s.py", sample), sampleConfig(), store) {
		t.Fatalf("unsupported document was analyzed")
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	fs := source.NewFileSet()
	f := load(fs, "s.c", sample)
	e := New(Options{Start: true})
	store := NewStore()
	cfg := sampleConfig()

	if !e.Run(context.Background(), "s.c", f, cfg, store) {
		t.Fatalf("first run skipped")
	}
	first := map[diag.Tag]int{}
	for _, tag := range diag.Tags() {
		first[tag] = store.Count("s.c", tag)
	}
	e.Run(context.Background(), "s.c", f, cfg, store)
	for _, tag := range diag.Tags() {
		if got := store.Count("s.c", tag); got != first[tag] || got != 1 {
			t.Fatalf("tag %s: first run %d, second run %d", tag, first[tag], got)
		}
	}
}

func TestReanalyzedBufferDoesNotDuplicate(t *testing.T) {
	fs := source.NewFileSet()
	e := New(Options{Start: true})
	store := NewStore()
	// каждая правка буфера даёт новый FileID
	e.Run(context.Background(), "s.c", load(fs, "s.c", sample), sampleConfig(), store)
	e.Run(context.Background(), "s.c", load(fs, "s.c", sample), sampleConfig(), store)
	if got := len(store.Get("s.c")); got != len(diag.Tags()) {
		t.Fatalf("expected %d diagnostics, got %d", len(diag.Tags()), got)
	}
}

func TestMergePolicies(t *testing.T) {
	v2 := "// header\nint bad_name = 1;\n"
	tests := []struct {
		name       string
		unified    bool
		naming     int
		commenting int
	}{
		{"append keeps earlier batch", false, 2, 0},
		{"unified replace", true, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := source.NewFileSet()
			cfg := sampleConfig()
			cfg.Engine.UnifiedReplace = tt.unified
			e := New(Options{Start: true})
			store := NewStore()

			e.Run(context.Background(), "s.c", load(fs, "s.c", sample), cfg, store)
			e.Run(context.Background(), "s.c", load(fs, "s.c", v2), cfg, store)

			if got := store.Count("s.c", diag.TagNaming); got != tt.naming {
				t.Fatalf("naming: expected %d, got %d", tt.naming, got)
			}
			if got := store.Count("s.c", diag.TagCommenting); got != tt.commenting {
				t.Fatalf("commenting: expected %d, got %d", tt.commenting, got)
			}
			if got := store.Count("s.c", diag.TagLineCount); got != 0 {
				t.Fatalf("line count must be replaced, got %d", got)
			}
		})
	}
}

func TestPolicyFor(t *testing.T) {
	cfg := sampleConfig()
	want := map[diag.Tag]MergePolicy{
		diag.TagLineCount:     Replace,
		diag.TagCommenting:    Replace,
		diag.TagNaming:        Append,
		diag.TagFunction:      Append,
		diag.TagMacro:         Append,
		diag.TagUninitialized: Append,
	}
	for tag, p := range want {
		if got := PolicyFor(tag, cfg); got != p {
			t.Fatalf("PolicyFor(%s) = %s, want %s", tag, got, p)
		}
	}
	cfg.Engine.UnifiedReplace = true
	for _, tag := range diag.Tags() {
		if PolicyFor(tag, cfg) != Replace {
			t.Fatalf("unified replace ignored for %s", tag)
		}
	}
}

func TestStateMachine(t *testing.T) {
	e := New(Options{})
	if e.State() != Stopped {
		t.Fatalf("new engine must be stopped")
	}
	store := NewStore()
	fs := source.NewFileSet()
	if e.Run(context.Background(), "s.c", load(fs, "s.c", sample), sampleConfig(), store) {
		t.Fatalf("stopped engine ran")
	}
	if len(store.Documents()) != 0 {
		t.Fatalf("stopped engine touched the sink")
	}
	if !e.Start() || e.Start() {
		t.Fatalf("Start must report a change exactly once")
	}
	if e.State() != Running {
		t.Fatalf("expected running")
	}
	if !e.Run(context.Background(), "s.c", load(fs, "s.c", sample), sampleConfig(), store) {
		t.Fatalf("running engine skipped")
	}
	if !e.Stop() || e.Stop() {
		t.Fatalf("Stop must report a change exactly once")
	}
}

func TestPanickingAnalyzerIsContained(t *testing.T) {
	boom := &checks.Analyzer{Name: "boom", Tag: diag.TagMacro, Run: func(*checks.Pass) { panic("boom") }}
	e := New(Options{Analyzers: []*checks.Analyzer{boom, checks.Naming}})
	fs := source.NewFileSet()
	set := e.Analyze(context.Background(), load(fs, "s.c", sample), sampleConfig())
	if set.Count(diag.TagMacro) != 0 || set.Count(diag.TagNaming) != 1 {
		t.Fatalf("unexpected set after panic: %+v", set.All())
	}
}

func TestStoreClear(t *testing.T) {
	store := NewStore()
	d := diag.Diagnostic{Code: diag.NamingConvention, Message: "m"}
	store.Append("a", diag.TagNaming, []diag.Diagnostic{d, d})
	store.Append("b", diag.TagNaming, []diag.Diagnostic{d})
	if store.Count("a", diag.TagNaming) != 1 {
		t.Fatalf("append did not dedup within a batch")
	}
	store.Clear("a")
	if docs := store.Documents(); len(docs) != 1 || docs[0] != "b" {
		t.Fatalf("unexpected documents %v", docs)
	}
	store.ClearAll()
	if len(store.Documents()) != 0 {
		t.Fatalf("ClearAll left documents")
	}
}

func TestRunTracesAndTimesRules(t *testing.T) {
	var buf bytes.Buffer
	ctx := trace.WithTracer(context.Background(), trace.NewWriter(&buf, trace.LevelDetail, trace.FormatNDJSON))
	timer := observ.NewTimer()
	e := New(Options{Start: true, Timer: timer})
	fs := source.NewFileSet()
	e.Run(ctx, "s.c", load(fs, "s.c", sample), sampleConfig(), NewStore())

	var fileSpan uint64
	rules := 0
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev struct {
			Kind   string `json:"kind"`
			ID     uint64 `json:"id"`
			Parent uint64 `json:"parent"`
			Name   string `json:"name"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad trace line %q: %v", line, err)
		}
		if ev.Kind != "begin" {
			continue
		}
		switch {
		case ev.Name == "file:s.c":
			fileSpan = ev.ID
		case strings.HasPrefix(ev.Name, "rule:"):
			rules++
			if fileSpan == 0 || ev.Parent != fileSpan {
				t.Fatalf("%s not parented to file span", ev.Name)
			}
		}
	}
	if rules != len(checks.All()) {
		t.Fatalf("expected %d rule spans, got %d", len(checks.All()), rules)
	}
	if got := len(timer.Report().Phases); got != len(checks.All()) {
		t.Fatalf("expected %d timed rules, got %d", len(checks.All()), got)
	}
}

func TestUnsetConventionReportsNoNaming(t *testing.T) {
	fs := source.NewFileSet()
	f := load(fs, "s.c", "int my_var = 1;\nint other_thing = 2;\n")
	for name, cfg := range map[string]config.Config{
		"default": config.Default(),
		"zero":    {},
	} {
		set := New(Options{}).Analyze(context.Background(), f, cfg)
		if n := set.Count(diag.TagNaming); n != 0 {
			t.Fatalf("%s config: expected no naming diagnostics, got %d", name, n)
		}
	}
}

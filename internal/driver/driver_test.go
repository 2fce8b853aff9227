package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"codespice/internal/config"
	"codespice/internal/diag"
)

const badC = "int my_var;\nint main(void) {\n  return 0;\n}\n"
const cleanC = "// clean.c\nint main(void) {\n  return 0;\n}\n"

func camelConfig() config.Config {
	cfg := config.Default()
	cfg.NamingConventions.Variable = config.CamelCase
	return cfg
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.File != "" && ev.Status == status {
			n++
		}
	}
	return n
}

func TestDiagnoseDirWalksSupportedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.c":            badC,
		"b.cpp":          cleanC,
		"inc/c.h":        badC,
		"notes.txt":      badC,
		"script.py":      badC,
		".git/hooks/x.c": badC,
	})
	res, err := DiagnoseDir(context.Background(), root, Options{Config: camelConfig(), BaseDir: root})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %d: %+v", len(res.Files), res.Files)
	}
	for _, f := range res.Files {
		if f.Err != nil {
			t.Fatalf("unexpected load error: %v", f.Err)
		}
	}
	// bad: Commenting + Naming + Uninitialized on each of two files
	if res.Bag.Len() != 6 {
		t.Fatalf("expected 6 diagnostics, got %d:\n%s", res.Bag.Len(), diag.FormatShortDiagnostics(res.Bag.Items(), res.FileSet, false))
	}
	counts := res.Bag.CountByTag()
	if counts[diag.TagNaming] != 2 || counts[diag.TagUninitialized] != 2 || counts[diag.TagCommenting] != 2 {
		t.Fatalf("unexpected tag counts: %v", counts)
	}
}

func TestDiagnoseExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.c":         badC,
		"vendor/lib/b.c":  badC,
		"src/gen/c.gen.c": badC,
	})
	cfg := config.Default()
	cfg.Files.Exclude = []string{"vendor/**"}
	res, err := DiagnoseDir(context.Background(), root, Options{Config: cfg, Exclude: []string{"**/*.gen.c"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Files) != 1 || !strings.HasSuffix(filepath.ToSlash(res.Files[0].Path), "src/a.c") {
		t.Fatalf("unexpected files: %+v", res.Files)
	}
}

func TestDiagnoseInvalidExclude(t *testing.T) {
	root := writeTree(t, map[string]string{"a.c": badC})
	if _, err := DiagnoseDir(context.Background(), root, Options{Config: config.Default(), Exclude: []string{"[a-"}}); err == nil {
		t.Fatalf("expected error for malformed pattern")
	}
}

func TestDiagnoseMissingPath(t *testing.T) {
	if _, err := DiagnoseFile(context.Background(), filepath.Join(t.TempDir(), "nope.c"), Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestDiagnoseUsesDiskCache(t *testing.T) {
	root := writeTree(t, map[string]string{"a.c": badC, "b.c": cleanC})
	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{Config: camelConfig(), Cache: cache}

	first, err := DiagnoseDir(context.Background(), root, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CachedCount() != 0 {
		t.Fatalf("cold cache reported hits")
	}

	rec := &recorder{}
	opts.Progress = rec
	second, err := DiagnoseDir(context.Background(), root, opts)
	if err != nil {
		t.Fatal(err)
	}
	if second.CachedCount() != 2 || rec.count(StatusCached) != 2 {
		t.Fatalf("expected 2 cache hits, got %d (events %d)", second.CachedCount(), rec.count(StatusCached))
	}
	got := diag.FormatShortDiagnostics(second.Bag.Items(), second.FileSet, false)
	want := diag.FormatShortDiagnostics(first.Bag.Items(), first.FileSet, false)
	if got != want {
		t.Fatalf("cached diagnostics differ:\n%s\nvs\n%s", got, want)
	}

	// другая конфигурация даёт другой ключ
	opts.Config.NamingConventions.Variable = config.SnakeCase
	third, err := DiagnoseDir(context.Background(), root, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CachedCount() != 0 {
		t.Fatalf("config change must miss the cache")
	}
	if third.Bag.CountByTag()[diag.TagNaming] != 0 {
		t.Fatalf("snake_case config still reports naming")
	}
}

func TestDiskCacheRoundTripKeepsFixes(t *testing.T) {
	res, err := DiagnoseSource(context.Background(), "a.c", []byte(badC), Options{Config: config.Default()})
	if err != nil {
		t.Fatal(err)
	}
	payload := toDiskPayload("a.c", res.Files[0].Diagnostics)
	back := payload.restore(7)
	if len(back) != len(res.Files[0].Diagnostics) {
		t.Fatalf("lost diagnostics: %d vs %d", len(back), len(res.Files[0].Diagnostics))
	}
	fixes := 0
	for i, d := range back {
		orig := res.Files[0].Diagnostics[i]
		if d.Primary.File != 7 || d.Message != orig.Message || d.Code != orig.Code {
			t.Fatalf("diagnostic %d changed: %+v", i, d)
		}
		fixes += len(d.Fixes)
	}
	if fixes == 0 {
		t.Fatalf("expected fixes to survive the round trip")
	}
}

func TestDiskCacheDropAll(t *testing.T) {
	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	var key [32]byte
	key[0] = 1
	if err := cache.Put(key, &DiskPayload{Path: "a.c"}); err != nil {
		t.Fatal(err)
	}
	var out DiskPayload
	if ok, err := cache.Get(key, &out); err != nil || !ok || out.Path != "a.c" {
		t.Fatalf("Get = %v, %v, %+v", ok, err, out)
	}
	if err := cache.DropAll(); err != nil {
		t.Fatal(err)
	}
	if ok, _ := cache.Get(key, &out); ok {
		t.Fatalf("entry survived DropAll")
	}
}

func TestDiagnoseSourceUnsupported(t *testing.T) {
	res, err := DiagnoseSource(context.Background(), "a.go", []byte(badC), Options{Config: config.Default()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("unsupported document produced diagnostics")
	}
}

func TestWriteTimings(t *testing.T) {
	root := writeTree(t, map[string]string{"a.c": badC})
	res, err := DiagnoseDir(context.Background(), root, Options{Config: config.Default(), Timings: true})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteTimings(&buf, res, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "naming") || !strings.Contains(buf.String(), "1 files") {
		t.Fatalf("unexpected timings output:\n%s", buf.String())
	}
	buf.Reset()
	if err := WriteTimings(&buf, res, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"kind": "diagnose"`) {
		t.Fatalf("unexpected json timings:\n%s", buf.String())
	}
}

func TestMemCache(t *testing.T) {
	c := NewMemCache(4)
	var k1, k2 [32]byte
	k2[0] = 1
	c.Put("a", k1, []diag.Diagnostic{{Message: "m"}})
	if got, ok := c.Get("a", k1); !ok || len(got) != 1 {
		t.Fatalf("expected hit")
	}
	if _, ok := c.Get("a", k2); ok {
		t.Fatalf("stale key hit")
	}
	c.Forget("a")
	if _, ok := c.Get("a", k1); ok {
		t.Fatalf("forgotten doc hit")
	}
	c.Put("a", k1, nil)
	c.Put("b", k2, nil)
	c.Reset()
	if _, ok := c.Get("b", k2); ok {
		t.Fatalf("reset kept doc")
	}
}

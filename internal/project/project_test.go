package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codespice/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".codespice.json"), `{}`)
	nested := filepath.Join(root, "src", "core")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := FindConfig(nested)
	if err != nil || !ok {
		t.Fatalf("FindConfig: ok=%v err=%v", ok, err)
	}
	if filepath.Base(path) != ".codespice.json" {
		t.Fatalf("found %q", path)
	}

	// a TOML file in the same directory wins
	writeFile(t, filepath.Join(root, "codespice.toml"), "")
	path, _, _ = FindConfig(nested)
	if filepath.Base(path) != "codespice.toml" {
		t.Fatalf("priority not respected: %q", path)
	}
}

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		data string
	}{
		{"toml", ".toml", "[lineLength]\nmaxLength = 100\n[namingConventions]\nvariable = \"snake_case\"\n"},
		{"json", ".json", `{"lineLength": {"maxLength": 100}, "namingConventions": {"variable": "snake_case"}}`},
		{"yaml", ".yaml", "lineLength:\n  maxLength: 100\nnamingConventions:\n  variable: snake_case\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, warnings, err := Decode(tt.ext, []byte(tt.data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(warnings) != 0 {
				t.Fatalf("unexpected warnings: %v", warnings)
			}
			if cfg.LineLength.MaxLength != 100 {
				t.Fatalf("maxLength = %d", cfg.LineLength.MaxLength)
			}
			if cfg.NamingConventions.Variable != config.SnakeCase {
				t.Fatalf("variable = %q", cfg.NamingConventions.Variable)
			}
			// untouched keys keep defaults
			if cfg.FileLength.MaxLines != 400 || !cfg.Commenting.RequireHeader || cfg.Function.Parameters != 4 {
				t.Fatalf("defaults lost: %+v", cfg)
			}
		})
	}
}

func TestDecodeWarnings(t *testing.T) {
	_, warnings, err := Decode(".toml", []byte("[lineLength]\nmaxLenght = 3\n[namingConventions]\nvariable = \"kebab\"\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "maxLenght") {
		t.Fatalf("first warning = %q", warnings[0])
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, _, err := Decode(".json", []byte(`{"lineLength": {"maxLength": "long"}}`)); err == nil {
		t.Fatalf("expected a type error")
	}
	if _, _, err := Decode(".ini", nil); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	loaded, err := Resolve("", dir)
	if err != nil {
		t.Fatalf("Resolve without config: %v", err)
	}
	if loaded.Path != "" || loaded.Config.LineLength.MaxLength != 80 {
		t.Fatalf("expected defaults, got %+v", loaded)
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "lineLength: [\n")
	loaded, err = Resolve(bad, dir)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if loaded == nil || loaded.Config.LineLength.MaxLength != 80 {
		t.Fatalf("defaults must accompany the error")
	}
}

func TestDefaultTOMLRoundTrip(t *testing.T) {
	cfg, warnings, err := Decode(".toml", []byte(DefaultTOML()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("template has unknown keys: %v", warnings)
	}
	if cfg.Digest() != config.Default().Digest() {
		t.Fatalf("template does not match the defaults")
	}
}

func TestDecodeWithoutNamingLeavesConventionUnset(t *testing.T) {
	cfg, warnings, err := Decode(".json", []byte(`{"fileLength":{"maxLines":400}}`))
	if err != nil || len(warnings) != 0 {
		t.Fatalf("Decode: warnings=%v err=%v", warnings, err)
	}
	if cfg.NamingConventions.Variable != "" {
		t.Fatalf("variable = %q, want unset", cfg.NamingConventions.Variable)
	}
}

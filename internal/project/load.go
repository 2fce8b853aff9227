package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"codespice/internal/config"
)

// Loaded is a decoded config file together with non-fatal findings.
type Loaded struct {
	Path     string
	Root     string
	Config   config.Config
	Warnings []string
}

// Load decodes the config file at path. The format follows the extension:
// .toml, .json, .yaml/.yml. Keys missing from the file keep their defaults.
func Load(path string) (*Loaded, error) {
	// #nosec G304 -- path comes from discovery or the --config flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg, warnings, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Loaded{
		Path:     path,
		Root:     filepath.Dir(path),
		Config:   cfg,
		Warnings: warnings,
	}, nil
}

// Decode parses data in the format named by ext on top of config.Default.
func Decode(ext string, data []byte) (config.Config, []string, error) {
	cfg := config.Default()
	var warnings []string

	switch strings.ToLower(ext) {
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return config.Default(), nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		for _, key := range meta.Undecoded() {
			warnings = append(warnings, fmt.Sprintf("unknown key %q", key.String()))
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&cfg); err != nil {
			return config.Default(), nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return config.Default(), nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return config.Default(), nil, fmt.Errorf("unsupported config format %q", ext)
	}

	if v := cfg.NamingConventions.Variable; v != "" && !v.Known() {
		warnings = append(warnings, fmt.Sprintf("unknown naming convention %q, naming check disabled", v))
	}
	return cfg.Normalize(), warnings, nil
}

// LoadNearest finds the config governing startDir and loads it.
// It returns ErrNoConfig when nothing is found.
func LoadNearest(startDir string) (*Loaded, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoConfig
	}
	return Load(path)
}

// Resolve picks the explicit path when given, otherwise the nearest config,
// otherwise the defaults. Decode errors are returned with the defaults so
// callers can report and continue.
func Resolve(explicit, startDir string) (*Loaded, error) {
	if explicit != "" {
		loaded, err := Load(explicit)
		if err != nil {
			return defaults(), err
		}
		return loaded, nil
	}
	loaded, err := LoadNearest(startDir)
	switch {
	case err == nil:
		return loaded, nil
	case errors.Is(err, ErrNoConfig):
		return defaults(), nil
	default:
		return defaults(), err
	}
}

func defaults() *Loaded {
	return &Loaded{Config: config.Default()}
}

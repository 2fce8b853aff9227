package lsp

import (
	"bytes"
	"encoding/json"
	"path/filepath"

	"codespice/internal/config"
	"codespice/internal/project"
)

type settings struct {
	configPath string
	// overrides are applied on top of the resolved config file.
	overrides json.RawMessage
}

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	params, ok := decodeNotification[didChangeConfigurationParams](s, msg)
	if ok && s.applySettings(params.Settings) {
		s.scheduleDiagnostics(s.openURIs()...)
	}
	return nil
}

// applySettings merges the codespice section of raw and reports whether
// anything affecting diagnostics changed.
func (s *Server) applySettings(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var parsed lspSettings
	if err := json.Unmarshal(raw, &parsed); err != nil {
		s.logf("settings: %v", err)
		return false
	}
	cs := parsed.Codespice
	if cs == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	if cs.ConfigPath != nil && *cs.ConfigPath != s.settings.configPath {
		s.settings.configPath = *cs.ConfigPath
		changed = true
	}
	if cs.Config != nil && !bytes.Equal(cs.Config, s.settings.overrides) {
		s.settings.overrides = cs.Config
		changed = true
	}
	if cs.MaxDiagnostics != nil && *cs.MaxDiagnostics > 0 && *cs.MaxDiagnostics != s.maxDiagnostics {
		s.maxDiagnostics = *cs.MaxDiagnostics
		changed = true
	}
	if cs.Trace != nil {
		s.traceLSP = *cs.Trace
	}
	return changed
}

// configFor resolves the configuration governing the document at path:
// the configured file (relative paths resolve against the workspace root),
// else the nearest config file, else defaults; inline overrides last.
func (s *Server) configFor(path string) config.Config {
	s.mu.Lock()
	st := s.settings
	root := s.workspaceRoot
	s.mu.Unlock()

	explicit := st.configPath
	if explicit != "" && !filepath.IsAbs(explicit) && root != "" {
		explicit = filepath.Join(root, explicit)
	}
	loaded, err := project.Resolve(explicit, filepath.Dir(path))
	if err != nil {
		s.logf("config: %v", err)
	}
	for _, w := range loaded.Warnings {
		s.logf("config %s: %s", loaded.Path, w)
	}
	cfg := loaded.Config
	if len(st.overrides) > 0 && !bytes.Equal(st.overrides, []byte("null")) {
		over := cfg
		if err := json.Unmarshal(st.overrides, &over); err != nil {
			s.logf("config overrides: %v", err)
		} else {
			cfg = over.Normalize()
		}
	}
	return cfg
}

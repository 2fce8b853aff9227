package lsp

import (
	"encoding/json"

	"codespice/internal/engine"
)

func (s *Server) handleExecuteCommand(msg *rpcMessage) error {
	var params executeCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	switch params.Command {
	case CommandStart:
		if s.eng.Start() {
			s.scheduleDiagnostics(s.openURIs()...)
		}
	case CommandStop:
		s.stopScanning()
	case CommandStatus:
	default:
		return s.sendError(msg.ID, codeInvalidParams, "unknown command "+params.Command)
	}
	return s.sendResponse(msg.ID, commandResult{State: s.eng.State().String()})
}

// stopScanning closes the gate, waits out a running round and drops every
// diagnostic the server holds or has published.
func (s *Server) stopScanning() {
	s.eng.Stop()

	s.runMu.Lock()
	s.store.ClearAll()
	s.cache.Reset()
	s.runMu.Unlock()

	s.mu.Lock()
	clear(s.pending)
	for _, doc := range s.docs {
		doc.analyzed = nil
		doc.fresh = nil
	}
	s.mu.Unlock()
	s.clearPublishedDiagnostics()
}

// State reports the scanning gate.
func (s *Server) State() engine.State {
	return s.eng.State()
}

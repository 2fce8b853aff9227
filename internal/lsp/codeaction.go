package lsp

import (
	"encoding/json"

	"codespice/internal/diag"
	"codespice/internal/source"
)

func (s *Server) handleCodeAction(msg *rpcMessage) error {
	var params codeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)

	s.mu.Lock()
	var (
		file  *source.File
		fresh []diag.Diagnostic
	)
	if doc, ok := s.docs[uri]; ok && doc.analyzed != nil && string(doc.analyzed.Content) == doc.text {
		file = doc.analyzed
		fresh = doc.fresh
	}
	s.mu.Unlock()

	return s.sendResponse(msg.ID, buildCodeActions(uri, file, fresh, params.Range))
}

// buildCodeActions turns the fixes of diagnostics overlapping rng into
// quickfix actions. Fixes whose guard text no longer matches are dropped.
func buildCodeActions(uri string, file *source.File, diags []diag.Diagnostic, rng lspRange) []codeAction {
	actions := make([]codeAction, 0)
	if file == nil {
		return actions
	}
	for _, d := range diags {
		if len(d.Fixes) == 0 {
			continue
		}
		ld := toLSPDiagnostic(uri, file, d)
		if !rangesOverlap(ld.Range, rng) {
			continue
		}
		for _, fx := range d.Fixes {
			edits, ok := textEditsFor(file, fx)
			if !ok {
				continue
			}
			actions = append(actions, codeAction{
				Title:       fx.Title,
				Kind:        "quickfix",
				Diagnostics: []lspDiagnostic{ld},
				IsPreferred: fx.IsPreferred,
				Edit:        workspaceEdit{Changes: map[string][]textEdit{uri: edits}},
			})
		}
	}
	return actions
}

func textEditsFor(file *source.File, fx diag.Fix) ([]textEdit, bool) {
	size := safeUint32(len(file.Content))
	edits := make([]textEdit, 0, len(fx.Edits))
	for _, e := range fx.Edits {
		if e.Span.Start > e.Span.End || e.Span.End > size {
			return nil, false
		}
		if e.OldText != "" && string(file.Content[e.Span.Start:e.Span.End]) != e.OldText {
			return nil, false
		}
		edits = append(edits, textEdit{Range: rangeForSpan(file, e.Span), NewText: e.NewText})
	}
	return edits, len(edits) > 0
}

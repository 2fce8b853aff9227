package lsp

import "encoding/json"

// decodeNotification unmarshals params of a notification. Malformed
// params are logged and reported as !ok; notifications get no reply.
func decodeNotification[T any](s *Server, msg *rpcMessage) (T, bool) {
	var params T
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.logf("%s: invalid params: %v", msg.Method, err)
		return params, false
	}
	return params, true
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	params, ok := decodeNotification[didOpenTextDocumentParams](s, msg)
	uri := canonicalURI(params.TextDocument.URI)
	if !ok || uri == "" {
		return nil
	}
	path, _ := docPath(uri)
	s.mu.Lock()
	s.docs[uri] = &document{
		uri:     uri,
		path:    path,
		text:    params.TextDocument.Text,
		version: params.TextDocument.Version,
	}
	s.mu.Unlock()
	s.scheduleDiagnostics(uri)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	params, ok := decodeNotification[didChangeTextDocumentParams](s, msg)
	uri := canonicalURI(params.TextDocument.URI)
	if !ok || uri == "" {
		return nil
	}
	if !s.updateDoc(uri, func(doc *document) {
		doc.text = applyChanges(doc.text, params.ContentChanges)
		doc.version = params.TextDocument.Version
	}) {
		return nil
	}
	if s.traceLSP {
		s.logf("didChange: uri=%s version=%d changes=%d", uri, params.TextDocument.Version, len(params.ContentChanges))
	}
	s.scheduleDiagnostics(uri)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	params, ok := decodeNotification[didSaveTextDocumentParams](s, msg)
	uri := canonicalURI(params.TextDocument.URI)
	if !ok || uri == "" {
		return nil
	}
	if s.updateDoc(uri, func(doc *document) {
		if params.Text != nil {
			doc.text = *params.Text
		}
	}) {
		s.scheduleDiagnostics(uri)
	}
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	params, ok := decodeNotification[didCloseTextDocumentParams](s, msg)
	uri := canonicalURI(params.TextDocument.URI)
	if !ok || uri == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.docs, uri)
	delete(s.pending, uri)
	_, published := s.published[uri]
	delete(s.published, uri)
	s.mu.Unlock()

	s.store.Clear(uri)
	s.cache.Forget(uri)
	if !published {
		return nil
	}
	if err := s.sendPublish(uri, nil, nil); err != nil {
		s.logf("failed to clear diagnostics: %v", err)
	}
	return nil
}

// updateDoc runs fn on an open document under the lock and reports
// whether the document was open.
func (s *Server) updateDoc(uri string, fn func(*document)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if ok {
		fn(doc)
	}
	return ok
}

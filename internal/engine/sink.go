package engine

import (
	"sort"
	"sync"

	"codespice/internal/diag"
)

// Sink receives merged batches. doc is the document identifier the host
// uses: a path for the CLI, a URI for the language server.
type Sink interface {
	Replace(doc string, tag diag.Tag, items []diag.Diagnostic)
	Append(doc string, tag diag.Tag, items []diag.Diagnostic)
	Clear(doc string)
}

// Store is the in-memory Sink. It keeps the last known diagnostics of
// every document and is safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	docs map[string]map[diag.Tag][]diag.Diagnostic
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{docs: make(map[string]map[diag.Tag][]diag.Diagnostic)}
}

func (s *Store) tags(doc string) map[diag.Tag][]diag.Diagnostic {
	m, ok := s.docs[doc]
	if !ok {
		m = make(map[diag.Tag][]diag.Diagnostic, len(diag.Tags()))
		s.docs[doc] = m
	}
	return m
}

// Replace sets the batch of tag.
func (s *Store) Replace(doc string, tag diag.Tag, items []diag.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags(doc)[tag] = append([]diag.Diagnostic(nil), items...)
}

// Append adds items to the batch of tag, skipping entries already present.
// Identity ignores the file version, so re-analyzing an edited buffer does
// not duplicate a diagnostic that sits at the same place.
func (s *Store) Append(doc string, tag diag.Tag, items []diag.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.tags(doc)
	cur := m[tag]
	seen := make(map[diag.Key]struct{}, len(cur)+len(items))
	for _, d := range cur {
		seen[versionless(d)] = struct{}{}
	}
	for _, d := range items {
		k := versionless(d)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		cur = append(cur, d)
	}
	m[tag] = cur
}

// Clear drops everything known about doc.
func (s *Store) Clear(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, doc)
}

// ClearAll drops every document.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]map[diag.Tag][]diag.Diagnostic)
}

// Get returns a copy of doc's diagnostics in tag order.
func (s *Store) Get(doc string) []diag.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.docs[doc]
	var out []diag.Diagnostic
	for _, tag := range diag.Tags() {
		out = append(out, m[tag]...)
	}
	return out
}

// Count returns how many diagnostics of tag doc has.
func (s *Store) Count(doc string, tag diag.Tag) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[doc][tag])
}

// Documents lists known documents in sorted order.
func (s *Store) Documents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs))
	for doc := range s.docs {
		out = append(out, doc)
	}
	sort.Strings(out)
	return out
}

func versionless(d diag.Diagnostic) diag.Key {
	k := d.Key()
	k.File = 0
	return k
}

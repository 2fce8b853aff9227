package engine

import "codespice/internal/diag"

// Set holds one document's diagnostics grouped by rule tag.
type Set struct {
	byTag map[diag.Tag][]diag.Diagnostic
}

func newSet() *Set {
	return &Set{byTag: make(map[diag.Tag][]diag.Diagnostic, len(diag.Tags()))}
}

func (s *Set) put(tag diag.Tag, items []diag.Diagnostic) {
	s.byTag[tag] = items
}

// Get returns the batch of tag. The slice must not be modified.
func (s *Set) Get(tag diag.Tag) []diag.Diagnostic {
	if s == nil {
		return nil
	}
	return s.byTag[tag]
}

// Count returns the size of the batch of tag.
func (s *Set) Count(tag diag.Tag) int {
	return len(s.Get(tag))
}

// Len returns the total number of diagnostics.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, items := range s.byTag {
		n += len(items)
	}
	return n
}

// All flattens the set in tag order, keeping each batch's own order.
func (s *Set) All() []diag.Diagnostic {
	if s == nil {
		return nil
	}
	out := make([]diag.Diagnostic, 0, s.Len())
	for _, tag := range diag.Tags() {
		out = append(out, s.byTag[tag]...)
	}
	return out
}

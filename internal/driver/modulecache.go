package driver

import (
	"sync"

	"codespice/internal/diag"
	"codespice/internal/project"
)

// minimal per-process cache by document path + cache key
type cached struct {
	key   project.Digest
	diags []diag.Diagnostic
}

// MemCache keeps the last analysis of every document in memory. The
// language server uses it to skip re-analysis when a save does not change
// the buffer it already analyzed.
type MemCache struct {
	mu    sync.RWMutex
	byDoc map[string]cached
}

// NewMemCache creates a MemCache with the given capacity hint.
func NewMemCache(capHint int) *MemCache {
	return &MemCache{byDoc: make(map[string]cached, capHint)}
}

// Get returns the diagnostics stored for doc when key still matches.
func (c *MemCache) Get(doc string, key project.Digest) ([]diag.Diagnostic, bool) {
	c.mu.RLock()
	rec, ok := c.byDoc[doc]
	c.mu.RUnlock()
	if !ok || rec.key != key {
		return nil, false
	}
	return rec.diags, true
}

// Put stores diags for doc under key.
func (c *MemCache) Put(doc string, key project.Digest, diags []diag.Diagnostic) {
	c.mu.Lock()
	c.byDoc[doc] = cached{key: key, diags: diags}
	c.mu.Unlock()
}

// Forget drops doc.
func (c *MemCache) Forget(doc string) {
	c.mu.Lock()
	delete(c.byDoc, doc)
	c.mu.Unlock()
}

// Reset drops every document.
func (c *MemCache) Reset() {
	c.mu.Lock()
	clear(c.byDoc)
	c.mu.Unlock()
}

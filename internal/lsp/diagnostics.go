package lsp

import (
	"context"
	"sort"
	"time"

	"codespice/internal/diag"
	"codespice/internal/driver"
	"codespice/internal/engine"
	"codespice/internal/source"
)

type analysisJob struct {
	uri     string
	path    string
	text    string
	version int
}

// captureSink forwards to the store and keeps what one run produced.
type captureSink struct {
	engine.Sink
	items []diag.Diagnostic
}

func (c *captureSink) Replace(doc string, tag diag.Tag, items []diag.Diagnostic) {
	c.items = append(c.items, items...)
	c.Sink.Replace(doc, tag, items)
}

func (c *captureSink) Append(doc string, tag diag.Tag, items []diag.Diagnostic) {
	c.items = append(c.items, items...)
	c.Sink.Append(doc, tag, items)
}

func (s *Server) openURIs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// scheduleDiagnostics marks uris dirty and (re)arms the debounce timer.
func (s *Server) scheduleDiagnostics(uris ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, uri := range uris {
		s.pending[uri] = struct{}{}
	}
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounce, s.runDiagnostics)
}

// runDiagnostics analyzes every pending document and publishes the store
// contents for it. Rounds never overlap.
func (s *Server) runDiagnostics() {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	jobs := make([]analysisJob, 0, len(s.pending))
	for uri := range s.pending {
		doc, ok := s.docs[uri]
		if !ok {
			continue
		}
		jobs = append(jobs, analysisJob{uri: uri, path: doc.path, text: doc.text, version: doc.version})
	}
	clear(s.pending)
	ctx := s.baseCtx
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].uri < jobs[j].uri })
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		s.analyzeDocument(ctx, job)
	}

	select {
	case s.idle <- struct{}{}:
	default:
	}
}

func (s *Server) analyzeDocument(ctx context.Context, job analysisJob) {
	if s.eng.State() != engine.Running || !engine.Supported(job.path) {
		return
	}
	start := time.Now()
	cfg := s.configFor(job.path)
	fileSet := source.NewFileSet()
	file := fileSet.Get(fileSet.AddVirtual(job.path, []byte(job.text)))

	key := driver.CacheKey(file, cfg)
	fresh, hit := s.cache.Get(job.uri, key)
	if !hit {
		sink := &captureSink{Sink: s.store}
		if !s.eng.Run(ctx, job.uri, file, cfg, sink) {
			return
		}
		fresh = sink.items
		s.cache.Put(job.uri, key, fresh)
	}

	s.mu.Lock()
	doc, open := s.docs[job.uri]
	if open {
		doc.analyzed = file
		doc.fresh = fresh
	}
	limit := s.maxDiagnostics
	trace := s.traceLSP
	s.mu.Unlock()
	if !open {
		return
	}

	list := toLSPDiagnostics(job.uri, file, s.store.Get(job.uri), limit)
	if trace {
		s.logf("analyze: uri=%s version=%d cached=%t diagnostics=%d elapsed=%s",
			job.uri, job.version, hit, len(list), time.Since(start).Round(time.Microsecond))
	}
	s.mu.Lock()
	s.published[job.uri] = struct{}{}
	s.mu.Unlock()
	version := job.version
	if err := s.sendPublish(job.uri, &version, list); err != nil {
		s.logf("failed to publish diagnostics: %v", err)
	}
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	if len(s.published) == 0 {
		s.mu.Unlock()
		return
	}
	prev := make([]string, 0, len(s.published))
	for uri := range s.published {
		prev = append(prev, uri)
	}
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	sort.Strings(prev)
	for _, uri := range prev {
		if err := s.sendPublish(uri, nil, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}

func toLSPDiagnostics(uri string, file *source.File, diags []diag.Diagnostic, limit int) []lspDiagnostic {
	if limit > 0 && len(diags) > limit {
		diags = diags[:limit]
	}
	out := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, toLSPDiagnostic(uri, file, d))
	}
	return out
}

func toLSPDiagnostic(uri string, file *source.File, d diag.Diagnostic) lspDiagnostic {
	ld := lspDiagnostic{
		Range:    rangeForSpan(file, d.Primary),
		Severity: lspSeverity(d.Severity),
		Code:     d.Code.ID(),
		Source:   "codespice",
		Message:  d.Message,
	}
	for _, note := range d.Notes {
		ld.RelatedInformation = append(ld.RelatedInformation, diagnosticRelatedInfo{
			Location: location{URI: uri, Range: rangeForSpan(file, note.Span)},
			Message:  note.Msg,
		})
	}
	return ld
}

func lspSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SevError:
		return 1
	case diag.SevWarning:
		return 2
	default:
		return 3
	}
}

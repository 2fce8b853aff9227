// Package trace records the spans of a lint run: the driver pass over a set
// of paths, each document, and each rule over a document.
//
//	codespice diag --trace=- --trace-level=detail src/
//
// Spans travel through context. A host attaches a tracer once with
// WithTracer; code further down opens children with Start, which picks up
// the parent span from the context it is given:
//
//	ctx, span := trace.Start(ctx, trace.ScopeRule, "rule:naming")
//	defer span.End()
//
// Events go to a Writer as text or NDJSON. When no tracer is attached every
// call is a no-op.
package trace

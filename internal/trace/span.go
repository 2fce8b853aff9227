package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	seq    atomic.Uint64
	spanID atomic.Uint64
)

// Span is an open span. The zero value and nil are valid and record nothing.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	attrs   map[string]string
}

// Start opens a span under the span carried by ctx and returns a context
// carrying the new one. Scopes finer than the tracer level get a nil span
// and the unchanged ctx.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	t := FromContext(ctx)
	if !t.Level().Records(scope) {
		return ctx, nil
	}
	s := &Span{
		tracer:  t,
		id:      spanID.Add(1),
		parent:  parentOf(ctx),
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	t.Emit(Event{
		Time:   s.started,
		Seq:    seq.Add(1),
		Kind:   KindBegin,
		Scope:  scope,
		ID:     s.id,
		Parent: s.parent,
		Name:   name,
	})
	return context.WithValue(ctx, parentKey{}, s.id), s
}

// Set attaches an attribute reported with the closing event.
func (s *Span) Set(key, value string) *Span {
	if s == nil {
		return nil
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string, 2)
	}
	s.attrs[key] = value
	return s
}

// End closes the span and returns its duration.
func (s *Span) End() time.Duration {
	if s == nil {
		return 0
	}
	now := time.Now()
	dur := now.Sub(s.started)
	s.tracer.Emit(Event{
		Time:   now,
		Seq:    seq.Add(1),
		Kind:   KindEnd,
		Scope:  s.scope,
		ID:     s.id,
		Parent: s.parent,
		Name:   s.name,
		Dur:    dur,
		Attrs:  s.attrs,
	})
	return dur
}

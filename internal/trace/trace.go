package trace

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Scope is the granularity of a span, coarse to fine.
type Scope uint8

const (
	ScopeDriver Scope = iota + 1 // one diag/fix/lsp operation
	ScopeFile                    // one document
	ScopeRule                    // one analyzer over one document
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopeFile:
		return "file"
	case ScopeRule:
		return "rule"
	}
	return "unknown"
}

// Level selects the finest scope that is recorded.
type Level uint8

const (
	LevelOff    Level = iota
	LevelPhase        // driver and file spans
	LevelDetail       // plus rule spans
)

var levelNames = []string{"off", "phase", "detail"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel accepts the names printed by Level.String, case-insensitively.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames, "|"))
}

// Records reports whether spans of scope are kept at this level.
func (l Level) Records(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopeFile
	case LevelDetail:
		return scope <= ScopeRule
	}
	return false
}

// Kind tells span openings from closings.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
)

func (k Kind) String() string {
	if k == KindBegin {
		return "begin"
	}
	return "end"
}

// Event is one span boundary. Dur and Attrs are set on KindEnd only.
type Event struct {
	Time   time.Time
	Seq    uint64
	Kind   Kind
	Scope  Scope
	ID     uint64
	Parent uint64
	Name   string
	Dur    time.Duration
	Attrs  map[string]string
}

// Tracer receives events. Emit must be safe for concurrent use.
type Tracer interface {
	Emit(ev Event)
	Level() Level
	Close() error
}

type nopTracer struct{}

func (nopTracer) Emit(Event)   {}
func (nopTracer) Level() Level { return LevelOff }
func (nopTracer) Close() error { return nil }

// Nop drops everything.
var Nop Tracer = nopTracer{}

type tracerKey struct{}

type parentKey struct{}

// WithTracer attaches t to ctx. A nil t detaches tracing.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// FromContext returns the attached tracer or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

func parentOf(ctx context.Context) uint64 {
	if ctx != nil {
		if id, ok := ctx.Value(parentKey{}).(uint64); ok {
			return id
		}
	}
	return 0
}

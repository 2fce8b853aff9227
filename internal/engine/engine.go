package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"codespice/internal/checks"
	"codespice/internal/config"
	"codespice/internal/diag"
	"codespice/internal/observ"
	"codespice/internal/source"
	"codespice/internal/trace"
)

// Extensions lists the document extensions the engine analyzes.
var Extensions = []string{".c", ".cpp", ".h", ".hpp"}

// Supported reports whether path has an analyzed extension.
func Supported(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Options configures an Engine.
type Options struct {
	// Analyzers defaults to checks.All().
	Analyzers []*checks.Analyzer
	// Timer, when set, receives per-rule durations.
	Timer *observ.Timer
	// Start begins in the Running state.
	Start bool
}

// Engine runs analyzers over documents and merges their batches.
type Engine struct {
	analyzers []*checks.Analyzer
	timer     *observ.Timer
	state     gate
}

// New creates an Engine.
func New(opts Options) *Engine {
	e := &Engine{analyzers: opts.Analyzers, timer: opts.Timer}
	if len(e.analyzers) == 0 {
		e.analyzers = checks.All()
	}
	if opts.Start {
		e.state.swap(Running)
	}
	return e
}

// Start switches to Running and reports whether the state changed.
func (e *Engine) Start() bool { return e.state.swap(Running) }

// Stop switches to Stopped and reports whether the state changed.
func (e *Engine) Stop() bool { return e.state.swap(Stopped) }

// State returns the current gate state.
func (e *Engine) State() State { return e.state.load() }

// Analyze runs every analyzer over f and returns the batches. It ignores
// the gate and does not touch any sink.
func (e *Engine) Analyze(ctx context.Context, f *source.File, cfg config.Config) *Set {
	set := newSet()
	if f == nil || !Supported(f.Path) {
		return set
	}
	pass := checks.NewPass(f, cfg, nil)
	for _, a := range e.analyzers {
		bag := diag.NewBag(0)
		pass.Report = diag.BagReporter{Bag: bag}

		_, span := trace.Start(ctx, trace.ScopeRule, "rule:"+a.Name)
		stop := e.timer.Begin(a.Name)
		if err := runAnalyzer(a, pass); err != nil {
			span.Set("error", err.Error())
		}
		stop(bag.Len())
		span.Set("diagnostics", strconv.Itoa(bag.Len())).End()

		// несколько анализаторов могут делить один тег
		set.put(a.Tag, append(set.Get(a.Tag), bag.Items()...))
	}
	return set
}

// runAnalyzer keeps a misbehaving rule from taking down the host.
func runAnalyzer(a *checks.Analyzer, pass *checks.Pass) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer %s panicked: %v", a.Name, r)
		}
	}()
	a.Run(pass)
	return nil
}

// Run analyzes f and merges the result into sink under doc. It returns
// false without touching the sink when the engine is Stopped or the
// document is not a C/C++ file.
func (e *Engine) Run(ctx context.Context, doc string, f *source.File, cfg config.Config, sink Sink) bool {
	if e.State() != Running {
		return false
	}
	if f == nil || !Supported(f.Path) {
		return false
	}
	ctx, span := trace.Start(ctx, trace.ScopeFile, "file:"+doc)

	set := e.Analyze(ctx, f, cfg)
	Merge(doc, set, cfg, sink)

	span.Set("diagnostics", strconv.Itoa(set.Len())).End()
	return true
}

// Merge hands every tag's batch to sink using the tag's policy. Replace
// tags are always sent, even empty, so stale entries disappear.
func Merge(doc string, set *Set, cfg config.Config, sink Sink) {
	if sink == nil {
		return
	}
	for _, tag := range diag.Tags() {
		items := set.Get(tag)
		switch PolicyFor(tag, cfg) {
		case Replace:
			sink.Replace(doc, tag, items)
		case Append:
			if len(items) > 0 {
				sink.Append(doc, tag, items)
			}
		}
	}
}

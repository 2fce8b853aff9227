package observ

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Phase aggregates time spent under one name, usually a rule or a driver step.
type Phase struct {
	Name        string
	Calls       int
	Dur         time.Duration
	Diagnostics int
	first       int
}

// Timer accumulates phase durations. Safe for concurrent use: the driver
// analyzes files in parallel and every worker reports into the same Timer.
type Timer struct {
	mu     sync.Mutex
	phases map[string]*Phase
	order  int
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make(map[string]*Phase, 8)} }

// Begin starts measuring name and returns a stop function.
// stop records the elapsed time together with the diagnostics produced.
func (t *Timer) Begin(name string) (stop func(diagnostics int)) {
	if t == nil {
		return func(int) {}
	}
	start := time.Now()
	return func(diagnostics int) {
		t.Add(name, time.Since(start), diagnostics)
	}
}

// Add records one call of name.
func (t *Timer) Add(name string, d time.Duration, diagnostics int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.phases[name]
	if !ok {
		p = &Phase{Name: name, first: t.order}
		t.order++
		t.phases[name] = p
	}
	p.Calls++
	p.Dur += d
	p.Diagnostics += diagnostics
}

// Summary returns a human-readable string summarizing all tracked phases.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %9.2f ms  %5d calls  %5d diags\n", p.Name, p.DurationMS, p.Calls, p.Diagnostics)
	}
	fmt.Fprintf(&sb, "  %-20s %9.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// PhaseReport представляет сжатую информацию о фазе таймера для сериализации.
type PhaseReport struct {
	Name        string  `json:"name"`
	DurationMS  float64 `json:"duration_ms"`
	Calls       int     `json:"calls"`
	Diagnostics int     `json:"diagnostics"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report формирует срез фаз в порядке первого появления и общую длительность.
func (t *Timer) Report() Report {
	if t == nil {
		return Report{}
	}
	t.mu.Lock()
	phases := make([]Phase, 0, len(t.phases))
	for _, p := range t.phases {
		phases = append(phases, *p)
	}
	t.mu.Unlock()
	if len(phases) == 0 {
		return Report{}
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i].first < phases[j].first })

	report := Report{Phases: make([]PhaseReport, len(phases))}
	var total time.Duration
	for i, phase := range phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:        phase.Name,
			DurationMS:  durationToMillis(phase.Dur),
			Calls:       phase.Calls,
			Diagnostics: phase.Diagnostics,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

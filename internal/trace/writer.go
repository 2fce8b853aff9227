package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Format is the encoding of a Writer.
type Format uint8

const (
	FormatAuto   Format = iota // ndjson for *.ndjson and *.jsonl paths, text otherwise
	FormatText
	FormatNDJSON
)

// ParseFormat converts a --trace-format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	}
	return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson)", s)
}

// Writer encodes every event to w as soon as it arrives.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	level  Level
	format Format
	epoch  time.Time
}

// NewWriter traces to w. Formats other than FormatNDJSON write text.
func NewWriter(w io.Writer, level Level, format Format) *Writer {
	return &Writer{w: w, level: level, format: format, epoch: time.Now()}
}

// Open creates a tracer writing to path ("" or "-" for stderr). LevelOff
// yields Nop without touching the file system.
func Open(path string, level Level, format Format) (Tracer, error) {
	if level == LevelOff {
		return Nop, nil
	}
	if format == FormatAuto {
		format = FormatText
		if strings.HasSuffix(path, ".ndjson") || strings.HasSuffix(path, ".jsonl") {
			format = FormatNDJSON
		}
	}
	if path == "" || path == "-" {
		return NewWriter(os.Stderr, level, format), nil
	}
	// #nosec G304 -- path comes from the --trace flag
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	tw := NewWriter(f, level, format)
	tw.closer = f
	return tw, nil
}

func (t *Writer) Level() Level { return t.level }

// Emit encodes ev. Write errors are dropped: tracing never fails a lint run.
func (t *Writer) Emit(ev Event) {
	var line []byte
	if t.format == FormatNDJSON {
		line = encodeJSON(ev)
	} else {
		line = t.encodeText(ev)
	}
	t.mu.Lock()
	_, _ = t.w.Write(line)
	t.mu.Unlock()
}

// Close closes the underlying file when Open created one.
func (t *Writer) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

type jsonEvent struct {
	Time   string            `json:"time"`
	Seq    uint64            `json:"seq"`
	Kind   string            `json:"kind"`
	Scope  string            `json:"scope"`
	ID     uint64            `json:"id"`
	Parent uint64            `json:"parent,omitempty"`
	Name   string            `json:"name"`
	DurUS  int64             `json:"dur_us,omitempty"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

func encodeJSON(ev Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Time:   ev.Time.Format(time.RFC3339Nano),
		Seq:    ev.Seq,
		Kind:   ev.Kind.String(),
		Scope:  ev.Scope.String(),
		ID:     ev.ID,
		Parent: ev.Parent,
		Name:   ev.Name,
		DurUS:  ev.Dur.Microseconds(),
		Attrs:  ev.Attrs,
	})
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

// encodeText renders "+12.345ms   > file:a.c" for openings and
// "+12.400ms   < file:a.c 55µs diagnostics=3" for closings, indented by scope.
func (t *Writer) encodeText(ev Event) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "+%.3fms ", float64(ev.Time.Sub(t.epoch).Microseconds())/1000)
	sb.WriteString(strings.Repeat("  ", int(ev.Scope)))
	if ev.Kind == KindBegin {
		sb.WriteString("> ")
		sb.WriteString(ev.Name)
		sb.WriteByte('\n')
		return []byte(sb.String())
	}
	sb.WriteString("< ")
	sb.WriteString(ev.Name)
	sb.WriteByte(' ')
	sb.WriteString(ev.Dur.String())
	keys := make([]string, 0, len(ev.Attrs))
	for k := range ev.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%s", k, ev.Attrs[k])
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}

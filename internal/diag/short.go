package diag

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"codespice/internal/source"
)

// shortLine is one rendered row of FormatShortDiagnostics.
type shortLine struct {
	label     string
	id        string
	path      string
	line, col uint32
	msg       string
}

// FormatShortDiagnostics renders one "severity CODE path:line:col message"
// row per diagnostic, ordered by path, position, code and message. With
// includeNotes every note becomes an extra "note" row carrying the code of
// its diagnostic. Paths are relative to the FileSet base directory.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if fs == nil {
		return ""
	}
	var rows []shortLine
	add := func(label string, code Code, sp source.Span, msg string) {
		if int(sp.File) >= fs.Len() {
			return
		}
		start, _ := fs.Resolve(sp)
		rel := filepath.ToSlash(fs.Get(sp.File).FormatPath("relative", fs.BaseDir()))
		for strings.HasPrefix(rel, "./") {
			rel = rel[2:]
		}
		rows = append(rows, shortLine{
			label: label,
			id:    code.ID(),
			path:  rel,
			line:  start.Line,
			col:   start.Col,
			msg:   strings.Join(strings.Fields(strings.ReplaceAll(msg, "\r", "\n")), " "),
		})
	}
	for _, d := range diags {
		add(severityLabel(d.Severity), d.Code, d.Primary, d.Message)
		if includeNotes {
			for _, n := range d.Notes {
				add("note", d.Code, n.Span, n.Msg)
			}
		}
	}

	slices.SortStableFunc(rows, func(a, b shortLine) int {
		return cmp.Or(
			cmp.Compare(a.path, b.path),
			cmp.Compare(a.line, b.line),
			cmp.Compare(a.col, b.col),
			cmp.Compare(a.id, b.id),
			cmp.Compare(a.msg, b.msg),
		)
	})

	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = fmt.Sprintf("%s %s %s:%d:%d %s", r.label, r.id, r.path, r.line, r.col, r.msg)
	}
	return strings.Join(out, "\n")
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	}
	return "info"
}

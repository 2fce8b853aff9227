package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"codespice/internal/diag"
	"codespice/internal/source"
)

type palette struct {
	sev      map[diag.Severity]*color.Color
	code     *color.Color
	gutter   *color.Color
	caret    *color.Color
	note     *color.Color
	fix      *color.Color
	removed  *color.Color
	inserted *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevInfo:    mk(color.FgCyan, color.Bold),
			diag.SevWarning: mk(color.FgYellow, color.Bold),
			diag.SevError:   mk(color.FgRed, color.Bold),
		},
		code:     mk(color.Bold),
		gutter:   mk(color.FgBlue),
		caret:    mk(color.FgGreen, color.Bold),
		note:     mk(color.FgCyan),
		fix:      mk(color.FgMagenta),
		removed:  mk(color.FgRed),
		inserted: mk(color.FgGreen),
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes и Fixes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	if bag == nil || fs == nil {
		return
	}
	pal := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		prettyOne(w, &d, fs, opts, pal)
	}
}

func prettyOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	if int(d.Primary.File) >= fs.Len() {
		fmt.Fprintf(w, "%s %s: %s\n", pal.sev[d.Severity].Sprint(d.Severity.String()), pal.code.Sprint(d.Code.ID()), d.Message)
		return
	}
	f := fs.Get(d.Primary.File)
	start, end := fs.Resolve(d.Primary)
	path := formatPath(f, fs, opts.PathMode)

	sevColor, ok := pal.sev[d.Severity]
	if !ok {
		sevColor = pal.code
	}
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n",
		path, start.Line, start.Col,
		sevColor.Sprint(d.Severity.String()), pal.code.Sprint(d.Code.ID()), d.Message)

	writeSnippet(w, f, start, end, opts, pal)

	if opts.ShowNotes {
		for _, n := range d.Notes {
			if int(n.Span.File) >= fs.Len() {
				fmt.Fprintf(w, "  %s %s\n", pal.note.Sprint("note:"), n.Msg)
				continue
			}
			nf := fs.Get(n.Span.File)
			ns, _ := fs.Resolve(n.Span)
			fmt.Fprintf(w, "  %s %s:%d:%d: %s\n", pal.note.Sprint("note:"), formatPath(nf, fs, opts.PathMode), ns.Line, ns.Col, n.Msg)
		}
	}

	if opts.ShowFixes {
		for i, fx := range d.Fixes {
			header := fmt.Sprintf("fix #%d: %s (%s", i+1, fx.Title, fx.Applicability)
			if fx.ID != "" {
				header += ", id=" + fx.ID
			}
			header += ")"
			fmt.Fprintf(w, "  %s\n", pal.fix.Sprint(header))
			for _, e := range fx.Edits {
				es, ee := fs.Resolve(e.Span)
				fmt.Fprintf(w, "    edit %d:%d-%d:%d apply=%q\n", es.Line, es.Col, ee.Line, ee.Col, e.NewText)
				if !opts.ShowPreview {
					continue
				}
				before, after, ok := editPreview(fs, e)
				if !ok {
					continue
				}
				fmt.Fprintln(w, "    preview:")
				for _, l := range before {
					fmt.Fprintf(w, "      %s\n", pal.removed.Sprint("- "+l))
				}
				for _, l := range after {
					fmt.Fprintf(w, "      %s\n", pal.inserted.Sprint("+ "+l))
				}
			}
		}
	}
}

// writeSnippet prints the primary line with Context lines around it and a
// caret line under the span. Multi-line spans are underlined up to the end
// of their first line.
func writeSnippet(w io.Writer, f *source.File, start, end source.LineCol, opts PrettyOpts, pal palette) {
	ctx := max(int(opts.Context), 0)
	first := max(int(start.Line)-ctx, 1)
	last := min(int(start.Line)+ctx, f.LineCount())
	gutterWidth := len(fmt.Sprint(last))

	for ln := first; ln <= last; ln++ {
		text := f.GetLine(uint32(ln)) // #nosec G115 -- ln is bounded by LineCount
		display := text
		if opts.Width > 0 {
			display = runewidth.Truncate(display, int(opts.Width), "…")
		}
		fmt.Fprintf(w, " %s %s\n", pal.gutter.Sprintf("%*d |", gutterWidth, ln), display)
		if ln != int(start.Line) {
			continue
		}
		pad, width := caretGeometry(text, int(start.Col)-1, caretEnd(text, start, end))
		fmt.Fprintf(w, " %s %s%s\n", pal.gutter.Sprintf("%*s |", gutterWidth, ""), pad, pal.caret.Sprint("^"+strings.Repeat("~", width-1)))
	}
}

func caretEnd(text string, start, end source.LineCol) int {
	if end.Line != start.Line {
		return len(text)
	}
	return int(end.Col) - 1
}

// caretGeometry returns the padding in front of the caret and its display
// width. Tabs are kept so the caret lines up under tab-indented code.
func caretGeometry(text string, from, to int) (string, int) {
	from = min(max(from, 0), len(text))
	to = min(max(to, from), len(text))

	var pad strings.Builder
	for _, r := range text[:from] {
		if r == '\t' {
			pad.WriteByte('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return pad.String(), max(runewidth.StringWidth(text[from:to]), 1)
}

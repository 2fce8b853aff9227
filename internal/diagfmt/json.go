package diagfmt

import (
	"cmp"
	"encoding/json"
	"io"
	"slices"

	"codespice/internal/diag"
	"codespice/internal/source"
)

// JSONReport is the document written by `codespice diag --format json`.
type JSONReport struct {
	Count       int              `json:"count"`
	Diagnostics []JSONDiagnostic `json:"diagnostics"`
}

type JSONDiagnostic struct {
	Code     string       `json:"code"`
	Tag      string       `json:"tag"`
	Severity string       `json:"severity"`
	Message  string       `json:"message"`
	Location JSONLocation `json:"location"`
	Notes    []JSONNote   `json:"notes,omitempty"`
	Fixes    []JSONFix    `json:"fixes,omitempty"`
}

// JSONLocation always carries the byte range; Start and End are 1-based
// line/column pairs present only with JSONOpts.IncludePositions.
type JSONLocation struct {
	File   string    `json:"file"`
	Offset [2]uint32 `json:"offset"`
	Start  *JSONPos  `json:"start,omitempty"`
	End    *JSONPos  `json:"end,omitempty"`
}

type JSONPos struct {
	Line uint32 `json:"line"`
	Col  uint32 `json:"col"`
}

type JSONNote struct {
	Message  string       `json:"message"`
	Location JSONLocation `json:"location"`
}

type JSONFix struct {
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title"`
	Applicability string     `json:"applicability"`
	Preferred     bool       `json:"preferred,omitempty"`
	Edits         []JSONEdit `json:"edits"`
}

type JSONEdit struct {
	Location JSONLocation `json:"location"`
	NewText  string       `json:"newText"`
	OldText  string       `json:"oldText,omitempty"`
	Before   []string     `json:"before,omitempty"`
	After    []string     `json:"after,omitempty"`
}

type jsonBuilder struct {
	fs   *source.FileSet
	opts JSONOpts
}

func (b jsonBuilder) location(sp source.Span) JSONLocation {
	loc := JSONLocation{Offset: [2]uint32{sp.Start, sp.End}}
	if int(sp.File) >= b.fs.Len() {
		return loc
	}
	loc.File = formatPath(b.fs.Get(sp.File), b.fs, b.opts.PathMode)
	if b.opts.IncludePositions {
		s, e := b.fs.Resolve(sp)
		loc.Start = &JSONPos{Line: s.Line, Col: s.Col}
		loc.End = &JSONPos{Line: e.Line, Col: e.Col}
	}
	return loc
}

// preferred fixes first, then the safest, then by title
func fixOrder(a, b diag.Fix) int {
	if a.IsPreferred != b.IsPreferred {
		if a.IsPreferred {
			return -1
		}
		return 1
	}
	return cmp.Or(
		cmp.Compare(a.Applicability, b.Applicability),
		cmp.Compare(a.Title, b.Title),
		cmp.Compare(a.ID, b.ID),
	)
}

func (b jsonBuilder) fix(fx diag.Fix) JSONFix {
	out := JSONFix{
		ID:            fx.ID,
		Title:         fx.Title,
		Applicability: fx.Applicability.String(),
		Preferred:     fx.IsPreferred,
		Edits:         make([]JSONEdit, 0, len(fx.Edits)),
	}
	for _, e := range fx.Edits {
		je := JSONEdit{Location: b.location(e.Span), NewText: e.NewText, OldText: e.OldText}
		if b.opts.IncludePreviews {
			if before, after, ok := editPreview(b.fs, e); ok {
				je.Before, je.After = before, after
			}
		}
		out.Edits = append(out.Edits, je)
	}
	return out
}

func (b jsonBuilder) diagnostic(d diag.Diagnostic) JSONDiagnostic {
	out := JSONDiagnostic{
		Code:     d.Code.ID(),
		Tag:      d.Tag().String(),
		Severity: d.Severity.String(),
		Message:  d.Message,
		Location: b.location(d.Primary),
	}
	if b.opts.IncludeNotes {
		for _, n := range d.Notes {
			out.Notes = append(out.Notes, JSONNote{Message: n.Msg, Location: b.location(n.Span)})
		}
	}
	if b.opts.IncludeFixes && len(d.Fixes) > 0 {
		fixes := slices.Clone(d.Fixes)
		slices.SortStableFunc(fixes, fixOrder)
		for _, fx := range fixes {
			out.Fixes = append(out.Fixes, b.fix(fx))
		}
	}
	return out
}

// BuildJSONReport converts the bag without encoding it. opts.Max trims the
// report, not the bag.
func BuildJSONReport(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) JSONReport {
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	b := jsonBuilder{fs: fs, opts: opts}
	rep := JSONReport{Count: len(items), Diagnostics: make([]JSONDiagnostic, 0, len(items))}
	for _, d := range items {
		rep.Diagnostics = append(rep.Diagnostics, b.diagnostic(d))
	}
	return rep
}

// JSON writes BuildJSONReport as indented JSON.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildJSONReport(bag, fs, opts))
}

package diagfmt

import (
	"strings"

	"codespice/internal/diag"
	"codespice/internal/source"
)

// editPreview returns the whole lines an edit touches as they read before
// and after applying it. ok is false when the span does not fit its file.
func editPreview(fs *source.FileSet, e diag.TextEdit) (before, after []string, ok bool) {
	if fs == nil || int(e.Span.File) >= fs.Len() || e.Span.End < e.Span.Start {
		return nil, nil, false
	}
	f := fs.Get(e.Span.File)
	start, end := fs.Resolve(e.Span)
	first, last := int(start.Line)-1, int(max(start.Line, end.Line))-1
	lines := f.Lines()
	if first < 0 || last >= len(lines) {
		return nil, nil, false
	}

	from := f.LineStart(first)
	if e.Span.Start < from {
		return nil, nil, false
	}
	block := strings.Join(lines[first:last+1], "\n")
	lo := int(e.Span.Start - from)
	hi := lo + int(e.Span.Len())
	if hi > len(block) {
		return nil, nil, false
	}
	changed := block[:lo] + e.NewText + block[hi:]
	return strings.Split(block, "\n"), strings.Split(changed, "\n"), true
}

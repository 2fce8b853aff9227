package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"codespice/internal/diag"
	"codespice/internal/source"
)

// document is an open editor buffer.
type document struct {
	uri     string
	path    string
	text    string
	version int
	// analyzed is the snapshot the published diagnostics refer to;
	// fresh holds that snapshot's own diagnostics with their fixes.
	analyzed *source.File
	fresh    []diag.Diagnostic
}

// docPath converts a file:// URI into an absolute OS path. Other schemes
// (untitled:, git:) report false.
func docPath(uri string) (string, bool) {
	if uri == "" {
		return "", false
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", false
	}
	path := uri
	switch parsed.Scheme {
	case "file":
		path = parsed.Path
	case "":
	default:
		return "", false
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	path = filepath.Clean(filepath.FromSlash(path))
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, true
}

func pathToURI(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// canonicalURI maps equivalent spellings of a file URI onto one key.
func canonicalURI(uri string) string {
	path, ok := docPath(uri)
	if !ok {
		return ""
	}
	return pathToURI(path)
}

// applyChanges folds didChange events into text. A change without range
// replaces the whole buffer; ranged changes use UTF-16 positions.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := offsetForPosition(text, change.Range.End)
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// offsetForPosition clamps pos into text and returns its byte offset.
func offsetForPosition(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	lineStart := 0
	for range pos.Line {
		nl := strings.IndexByte(text[lineStart:], '\n')
		if nl < 0 {
			return len(text)
		}
		lineStart += nl + 1
	}
	line := text[lineStart:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	units := 0
	for i, r := range line {
		units += utf16Len(r)
		if units > pos.Character {
			return lineStart + i
		}
	}
	return lineStart + len(line)
}

// utf16Len counts UTF-16 code units of r; invalid bytes count as one.
func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

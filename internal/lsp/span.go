package lsp

import (
	"slices"

	"fortio.org/safecast"

	"codespice/internal/source"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// positionForOffset converts a byte offset in file into an LSP position
// counted in UTF-16 units. Offsets past the end clamp to the end.
func positionForOffset(file *source.File, offset uint32) position {
	if file == nil {
		return position{}
	}
	offset = min(offset, safeUint32(len(file.Content)))
	// LineIdx holds newline offsets; the line is the count of newlines before offset.
	line, _ := slices.BinarySearch(file.LineIdx, offset)
	var lineStart uint32
	if line > 0 {
		lineStart = file.LineIdx[line-1] + 1
	}
	units := 0
	for _, r := range string(file.Content[lineStart:offset]) {
		units += utf16Len(r)
	}
	return position{Line: line, Character: units}
}

func rangeForSpan(file *source.File, span source.Span) lspRange {
	return lspRange{
		Start: positionForOffset(file, span.Start),
		End:   positionForOffset(file, span.End),
	}
}

func rangesOverlap(a, b lspRange) bool {
	return !before(a.End, b.Start) && !before(b.End, a.Start)
}

func before(a, b position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Character < b.Character
}

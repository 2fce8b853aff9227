package diag

import (
	"codespice/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

// FixApplicability tells the fix engine how much to trust a fix.
type FixApplicability uint8

const (
	FixApplicabilityAlwaysSafe FixApplicability = iota
	FixApplicabilitySafeWithHeuristics
	FixApplicabilityManualReview
)

func (a FixApplicability) String() string {
	switch a {
	case FixApplicabilityAlwaysSafe:
		return "always-safe"
	case FixApplicabilitySafeWithHeuristics:
		return "safe-with-heuristics"
	case FixApplicabilityManualReview:
		return "manual-review"
	}
	return "unknown"
}

// TextEdit replaces Span with NewText. A non-empty OldText must match the
// current text under Span or the edit is rejected.
type TextEdit struct {
	Span    source.Span
	NewText string
	OldText string
}

type Fix struct {
	ID            string
	Title         string
	Applicability FixApplicability
	IsPreferred   bool
	Edits         []TextEdit
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}

// Tag is shorthand for d.Code.Tag().
func (d Diagnostic) Tag() Tag {
	return d.Code.Tag()
}

// Key identifies a diagnostic for deduplication: same rule, same range, same text.
type Key struct {
	Tag     Tag
	File    source.FileID
	Start   uint32
	End     uint32
	Message string
}

func (d Diagnostic) Key() Key {
	return Key{
		Tag:     d.Tag(),
		File:    d.Primary.File,
		Start:   d.Primary.Start,
		End:     d.Primary.End,
		Message: d.Message,
	}
}

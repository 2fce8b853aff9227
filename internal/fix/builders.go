package fix

import (
	"codespice/internal/diag"
	"codespice/internal/source"
)

// Option mutates fix during construction.
type Option func(*diag.Fix)

// WithApplicability overrides applicability metadata.
func WithApplicability(app diag.FixApplicability) Option {
	return func(f *diag.Fix) {
		f.Applicability = app
	}
}

// Preferred marks fix as preferred suggestion.
func Preferred() Option {
	return func(f *diag.Fix) {
		f.IsPreferred = true
	}
}

// WithID sets stable identifier for fix.
func WithID(id string) Option {
	return func(f *diag.Fix) {
		f.ID = id
	}
}

func applyOptions(f diag.Fix, opts []Option) diag.Fix {
	for _, opt := range opts {
		if opt != nil {
			opt(&f)
		}
	}
	return f
}

func single(title string, edit diag.TextEdit, opts []Option) diag.Fix {
	return applyOptions(diag.Fix{
		Title:         title,
		Applicability: diag.FixApplicabilityAlwaysSafe,
		Edits:         []diag.TextEdit{edit},
	}, opts)
}

// InsertText creates fix that inserts text at span (Span.Start == Span.End).
// A non-empty guard must match the text under at.
func InsertText(title string, at source.Span, text, guard string, opts ...Option) diag.Fix {
	return single(title, diag.TextEdit{Span: at, NewText: text, OldText: guard}, opts)
}

// DeleteSpan removes text covered by span.
func DeleteSpan(title string, span source.Span, expect string, opts ...Option) diag.Fix {
	return single(title, diag.TextEdit{Span: span, OldText: expect}, opts)
}

// ReplaceSpan replaces text covered by span with newText.
func ReplaceSpan(title string, span source.Span, newText, expect string, opts ...Option) diag.Fix {
	return single(title, diag.TextEdit{Span: span, NewText: newText, OldText: expect}, opts)
}

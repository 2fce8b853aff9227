package diag

import "codespice/internal/source"

// Reporter receives what a check finds.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter appends to Bag; a nil Bag drops everything.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag != nil {
		r.Bag.Add(d)
	}
}

// Pending is a diagnostic a check is still assembling. Only the first Emit
// reaches the reporter.
type Pending struct {
	to   Reporter
	d    Diagnostic
	sent bool
}

// Warn starts a warning addressed to r. Rules never report anything else.
func Warn(r Reporter, code Code, primary source.Span, msg string) *Pending {
	return &Pending{to: r, d: NewWarning(code, primary, msg)}
}

func (p *Pending) Note(sp source.Span, msg string) *Pending {
	p.d = p.d.WithNote(sp, msg)
	return p
}

func (p *Pending) Suggest(fix Fix) *Pending {
	p.d = p.d.WithFix(fix)
	return p
}

func (p *Pending) Emit() {
	if p.sent {
		return
	}
	p.sent = true
	if p.to != nil {
		p.to.Report(p.d)
	}
}

// NewWarning builds a bare warning.
func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: SevWarning, Code: code, Message: msg, Primary: primary}
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithFix(fix Fix) Diagnostic {
	d.Fixes = append(d.Fixes, fix)
	return d
}

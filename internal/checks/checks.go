package checks

import (
	"codespice/internal/config"
	"codespice/internal/diag"
	"codespice/internal/source"
)

// Pass is the input of one analyzer run over one document.
type Pass struct {
	File   *source.File
	Config config.Config
	Report diag.Reporter

	funcs     []Function
	extracted bool
}

// NewPass binds a document, its configuration and a reporter.
func NewPass(f *source.File, cfg config.Config, r diag.Reporter) *Pass {
	return &Pass{File: f, Config: cfg.Normalize(), Report: r}
}

// Functions returns the function records of the document. Extraction runs
// once per pass no matter how many analyzers ask.
func (p *Pass) Functions() []Function {
	if !p.extracted {
		p.funcs = ExtractFunctions(p.File, p.Config.Function.SkipKeywords)
		p.extracted = true
	}
	return p.funcs
}

func (p *Pass) warn(code diag.Code, sp source.Span, msg string) *diag.Pending {
	return diag.Warn(p.Report, code, sp, msg)
}

// Analyzer is one rule.
type Analyzer struct {
	Name string
	Tag  diag.Tag
	Doc  string
	Run  func(*Pass)
}

// All returns the analyzers in the order the engine runs them.
func All() []*Analyzer {
	return []*Analyzer{
		LineBudget,
		CommentHeader,
		Naming,
		MacroGuard,
		Uninitialized,
		Functions,
	}
}

// Lookup finds an analyzer by name.
func Lookup(name string) (*Analyzer, bool) {
	for _, a := range All() {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

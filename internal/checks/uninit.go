package checks

import (
	"fmt"
	"regexp"
	"strings"

	"codespice/internal/diag"
	"codespice/internal/fix"
	"codespice/internal/source"
)

// Uninitialized flags variables declared as `type name;` that are never
// given a value on the declaring line (`name=`) anywhere in the file. It is
// a line-local heuristic: an assignment on a later line does not count.
var Uninitialized = &Analyzer{
	Name: "uninit",
	Tag:  diag.TagUninitialized,
	Doc:  "declarations without a same-line initializer",
	Run:  runUninitialized,
}

var reBareDecl = regexp.MustCompile(`(\w+)\s+([a-zA-Z]+\w*)\s*;`)

// слова, после которых идёт не объявление, а оператор
var notATypeWord = map[string]bool{
	"return": true, "goto": true, "case": true, "delete": true, "throw": true,
	"typedef": true, "struct": true, "class": true, "union": true, "enum": true,
	"using": true, "namespace": true, "else": true, "do": true, "co_return": true,
	"friend": true,
}

// Declaration is a bare `type name;` found by FindDeclarations.
type Declaration struct {
	Type string
	Name string
	Line int // 0-based
	Col  int // byte column of Name in the raw line
	// Semicolon is the byte column of the terminating ';'.
	Semicolon int
}

// FindDeclarations scans text line by line (split on '\n') and returns the
// first bare declaration of each line. Any two words before a semicolon
// count, so `return x;` declares x unless skipKeywords is set.
func FindDeclarations(text string, skipKeywords bool) []Declaration {
	var out []Declaration
	lineNo := 0
	for len(text) > 0 || lineNo == 0 {
		line, rest, found := strings.Cut(text, "\n")
		if d, ok := declarationIn(line, skipKeywords); ok {
			d.Line = lineNo
			out = append(out, d)
		}
		if !found {
			break
		}
		text = rest
		lineNo++
	}
	return out
}

func declarationIn(line string, skipKeywords bool) (Declaration, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Declaration{}, false
	}
	if skipKeywords && (strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "typedef")) {
		return Declaration{}, false
	}
	loc := reBareDecl.FindStringSubmatchIndex(line)
	if loc == nil {
		return Declaration{}, false
	}
	typ := line[loc[2]:loc[3]]
	if skipKeywords && notATypeWord[typ] {
		return Declaration{}, false
	}
	return Declaration{
		Type:      typ,
		Name:      line[loc[4]:loc[5]],
		Col:       loc[4],
		Semicolon: loc[1] - 1,
	}, true
}

func runUninitialized(p *Pass) {
	f := p.File
	lines := f.Lines()

	// интернер сохраняет порядок первого объявления
	names := source.NewInterner()
	first := make(map[source.StringID]Declaration)
	initialized := make(map[source.StringID]bool)

	for _, d := range FindDeclarations(string(f.Content), p.Config.Uninitialized.SkipKeywords) {
		id := names.Intern(d.Name)
		if _, seen := first[id]; !seen {
			first[id] = d
		}
		if strings.Contains(lines[d.Line], d.Name+"=") {
			initialized[id] = true
		}
	}

	for id := source.StringID(1); int(id) < names.Len(); id++ {
		if initialized[id] {
			continue
		}
		d := first[id]
		semi := f.ColSpan(d.Line, d.Semicolon, d.Semicolon)
		p.warn(diag.VarUninitialized, f.PointSpan(0, 0),
			fmt.Sprintf("Uninitialized variable '%s' detected.", d.Name)).
			Note(f.ColSpan(d.Line, d.Col, d.Col+len(d.Name)), "declared here").
			Suggest(fix.InsertText(fmt.Sprintf("initialize '%s' with zero", d.Name), semi, " = 0", "",
				fix.WithApplicability(diag.FixApplicabilitySafeWithHeuristics))).
			Emit()
	}
}

package checks

import (
	"fmt"
	"regexp"
	"strings"

	"codespice/internal/diag"
)

// MacroGuard requires multi-line function-like macros to wrap their body in
// do { ... } while (0). By default only the first such macro is inspected;
// macro.checkAll extends the check to every one.
var MacroGuard = &Analyzer{
	Name: "macroguard",
	Tag:  diag.TagMacro,
	Doc:  "multi-line macros are wrapped in do { } while (0)",
	Run:  runMacroGuard,
}

// заголовок макроса: имя, необязательные параметры и сразу перенос строки
var reMacroHeader = regexp.MustCompile(`#define\s+(\w+)\s*(\([\w\s,]*\))?\s*\\\s*$`)

// Macro is a #define continued over several physical lines.
type Macro struct {
	Name   string
	Params string
	Line   int // 0-based line of the #define
	Body   string
}

// FindMacros returns the multi-line macros of lines in source order. The body
// runs up to and including the first line that does not end with a backslash;
// a macro still continued at end of file takes the rest of the file.
func FindMacros(lines []string) []Macro {
	var out []Macro
	for i := 0; i < len(lines); i++ {
		m := reMacroHeader.FindStringSubmatch(strings.TrimRight(lines[i], "\r"))
		if m == nil {
			continue
		}
		j := i + 1
		for j < len(lines) && continues(lines[j]) {
			j++
		}
		end := min(j, len(lines)-1)
		out = append(out, Macro{
			Name:   m[1],
			Params: m[2],
			Line:   i,
			Body:   strings.Join(lines[i+1:end+1], "\n"),
		})
		i = end
	}
	return out
}

func continues(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, "\r"), `\`)
}

// Guarded reports whether body contains "do" and, after it, "while".
func (m Macro) Guarded() bool {
	doAt := strings.Index(m.Body, "do")
	whileAt := strings.Index(m.Body, "while")
	return doAt >= 0 && whileAt >= 0 && doAt < whileAt
}

func runMacroGuard(p *Pass) {
	macros := FindMacros(p.File.Lines())
	if len(macros) == 0 {
		return
	}
	if !p.Config.Macro.CheckAll {
		macros = macros[:1]
	}
	for _, m := range macros {
		if m.Guarded() {
			continue
		}
		p.warn(diag.MacroMissingDoWhile, p.File.PointSpan(0, 0),
			fmt.Sprintf("Macro '%s' has to be wrapped inside a do-while loop.", m.Name)).
			Note(p.File.LineSpan(m.Line), "macro defined here").
			Emit()
	}
}

package checks

import (
	"fmt"
	"regexp"
	"strings"

	"codespice/internal/diag"
	"codespice/internal/fix"
)

// Functions runs the per-function checks over every extracted record: size,
// parameter count, cyclomatic complexity and the optional safety checks.
var Functions = &Analyzer{
	Name: "functions",
	Tag:  diag.TagFunction,
	Doc:  "function size, parameters, complexity and safety checks",
	Run:  runFunctions,
}

func runFunctions(p *Pass) {
	cfg := p.Config.Function
	cLike := isCFile(p.File.Ext())
	for _, fn := range p.Functions() {
		if fn.Lines() > cfg.MaxLines {
			p.warn(diag.FnTooLong, fn.NameSpan,
				fmt.Sprintf("Function '%s' exceeds the maximum line limit of %d.", fn.Name, cfg.MaxLines)).Emit()
		}
		if n := fn.ParamCount(); n > cfg.Parameters {
			p.warn(diag.FnTooManyParams, fn.NameSpan,
				fmt.Sprintf("Function '%s' has %d parameters, which exceeds the maximum limit of %d.", fn.Name, n, cfg.Parameters)).Emit()
		}
		if c := Complexity(fn.Body); c > cfg.MaxCyclomatic {
			p.warn(diag.FnTooComplex, fn.NameSpan,
				fmt.Sprintf("Function '%s' has a cyclomatic complexity of %d.", fn.Name, c)).Emit()
		}
		if cfg.ValidateParameters {
			checkParamValidation(p, fn)
		}
		if cfg.ExplicitVoid && cLike {
			checkExplicitVoid(p, fn)
		}
		if cfg.StackAddress {
			checkStackAddress(p, fn)
		}
	}
}

func isCFile(ext string) bool {
	return ext == ".c" || ext == ".h"
}

var reParamName = regexp.MustCompile(`([A-Za-z_]\w*)\s*(?:\[[^\]]*\]\s*)*$`)

// ParamName extracts the declared name from a parameter segment such as
// "const char *name" or "int values[]". Segments without a name give "".
func ParamName(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" || segment == "void" || segment == "..." {
		return ""
	}
	// одно слово без имени: прототипный стиль "int"
	if !strings.ContainsAny(segment, " \t*&") {
		return ""
	}
	m := reParamName.FindStringSubmatch(segment)
	if m == nil {
		return ""
	}
	return m[1]
}

const cmpOps = `(?:==|!=|>=|<=|>|<)`

func comparedIn(body, name string) bool {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`\S+\s*` + cmpOps + `\s*` + q + `\b|\b` + q + `\b\s*` + cmpOps + `\s*\S|\(\s*` + q + `\s*\)|!\s*` + q + `\b`)
	return re.MatchString(body)
}

func checkParamValidation(p *Pass, fn Function) {
	for _, seg := range fn.ParamList() {
		name := ParamName(seg)
		if name == "" || comparedIn(fn.Body, name) {
			continue
		}
		p.warn(diag.FnParamNotValidated, fn.NameSpan,
			fmt.Sprintf("Parameter '%s' in function '%s' is not validated.", name, fn.Name)).Emit()
	}
}

func checkExplicitVoid(p *Pass, fn Function) {
	if strings.TrimSpace(fn.Params) != "" {
		return
	}
	p.warn(diag.FnImplicitVoid, fn.NameSpan,
		fmt.Sprintf("Function '%s' does not explicitly specify 'void' when accepting no arguments.", fn.Name)).
		Suggest(fix.ReplaceSpan("declare the parameter list as void",
			fn.ParamSpan, "void", fn.Params, fix.Preferred())).
		Emit()
}

var reStaticKw = regexp.MustCompile(`\bstatic\b`)

var reReturnAddr = regexp.MustCompile(`\breturn\s*\(?\s*&\s*([A-Za-z_]\w*)\s*\)?\s*;`)

func declaredLocally(body, name string) bool {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`(?m)^\s*((?:const\s+|volatile\s+|register\s+|static\s+)*)([A-Za-z_][\w:<>]*)[\s*&]+` + q + `\s*(?:\[[^\]]*\]\s*)*(?:=|;|,)`)
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		if notATypeWord[m[2]] || reStaticKw.MatchString(m[1]) {
			continue
		}
		return true
	}
	return false
}

func checkStackAddress(p *Pass, fn Function) {
	lines := strings.Split(fn.Body, "\n")
	// параметры не считаются локальными
	inner := strings.Join(lines[1:], "\n")
	for off, line := range lines[1:] {
		m := reReturnAddr.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		name := line[m[2]:m[3]]
		if !declaredLocally(inner, name) {
			continue
		}
		lineNo := fn.Start + 1 + off
		p.warn(diag.FnReturnsStackAddress, p.File.ColSpan(lineNo, m[2], m[3]),
			fmt.Sprintf("Return of stack variable address '%s' in function '%s'.", name, fn.Name)).Emit()
	}
}

package checks

import (
	"regexp"
	"strings"

	"codespice/internal/source"
)

// Function is a function definition found by ExtractFunctions.
type Function struct {
	Name   string
	Params string // raw text between the parentheses
	Start  int    // 0-based line of the header
	End    int    // 0-based line of the closing brace, inclusive
	Body   string // lines Start..End joined with '\n'

	NameSpan  source.Span
	ParamSpan source.Span
}

var reFuncHeader = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\s*\(\s*([^)]*)\s*\)\s*\{`)

// control-flow keywords look like calls followed by a block
var notAFunctionName = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"else": true, "return": true, "sizeof": true, "do": true,
}

// ExtractFunctions finds function headers line by line and closes each one
// with a line-granular brace count. Headers whose closing brace is not found
// on a later line are dropped. Unless skipKeywords is set, `if (c) {` and
// friends are headers too.
func ExtractFunctions(f *source.File, skipKeywords bool) []Function {
	lines := f.Lines()
	var out []Function
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		m := headerMatch(line, skipKeywords)
		if m == nil {
			continue
		}
		end := matchingBrace(lines, i)
		if end == i {
			continue
		}
		out = append(out, Function{
			Name:      line[m[2]:m[3]],
			Params:    line[m[4]:m[5]],
			Start:     i,
			End:       end,
			Body:      strings.Join(lines[i:end+1], "\n"),
			NameSpan:  f.ColSpan(i, m[2], m[3]),
			ParamSpan: f.ColSpan(i, m[4], m[5]),
		})
	}
	return out
}

func headerMatch(line string, skipKeywords bool) []int {
	if !skipKeywords {
		return reFuncHeader.FindStringSubmatchIndex(line)
	}
	for _, m := range reFuncHeader.FindAllStringSubmatchIndex(line, -1) {
		if !notAFunctionName[line[m[2]:m[3]]] {
			return m
		}
	}
	return nil
}

// matchingBrace returns the line where the brace counter started at start
// drops back to zero, or start when it never does.
func matchingBrace(lines []string, start int) int {
	depth := 0
	for i := start; i < len(lines); i++ {
		if strings.Contains(lines[i], "{") {
			depth++
		}
		if strings.Contains(lines[i], "}") {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return start
}

// ParamList splits Params on commas and trims each segment.
func (fn Function) ParamList() []string {
	if strings.TrimSpace(fn.Params) == "" {
		return nil
	}
	parts := strings.Split(fn.Params, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParamCount is the number of comma-separated segments; a lone void is one.
func (fn Function) ParamCount() int {
	return len(fn.ParamList())
}

// Lines is the inclusive line count from header to closing brace.
func (fn Function) Lines() int {
	return fn.End - fn.Start + 1
}

var reDecisionPoint = regexp.MustCompile(`(if|else if|else|for|while)\s*\([^)]*\)\s*\{`)

// Complexity is 1 plus the number of if/else if/else/for/while constructs
// whose condition and opening brace sit on the same line.
func Complexity(body string) int {
	return 1 + len(reDecisionPoint.FindAllStringIndex(body, -1))
}

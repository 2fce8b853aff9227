package checks

import (
	"fmt"
	"regexp"
	"strings"

	"codespice/internal/config"
	"codespice/internal/diag"
)

// Naming checks every identifier-looking token against
// namingConventions.variable.
var Naming = &Analyzer{
	Name: "naming",
	Tag:  diag.TagNaming,
	Doc:  "identifiers follow the configured naming convention",
	Run:  runNaming,
}

var (
	reIdentToken = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]*\b`)

	conventionPatterns = map[config.Convention]*regexp.Regexp{
		config.CamelCase:  regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`),
		config.PascalCase: regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`),
		config.UpperCase:  regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`),
		config.SnakeCase:  regexp.MustCompile(`^[a-z][a-z0-9_]*$`),
	}
)

// ValidName reports whether name satisfies convention. Names that are already
// upper case are constants and always valid; unknown conventions accept everything.
func ValidName(name string, convention config.Convention) bool {
	if name == strings.ToUpper(name) {
		return true
	}
	re, ok := conventionPatterns[convention]
	if !ok {
		return true
	}
	return re.MatchString(name)
}

func runNaming(p *Pass) {
	convention := p.Config.NamingConventions.Variable
	if _, ok := conventionPatterns[convention]; !ok {
		return
	}
	f := p.File
	for i, line := range f.Lines() {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		for _, loc := range reIdentToken.FindAllStringIndex(line, -1) {
			name := line[loc[0]:loc[1]]
			if ValidName(name, convention) {
				continue
			}
			p.warn(diag.NamingConvention, f.ColSpan(i, loc[0], loc[1]),
				fmt.Sprintf("Invalid naming '%s'. Names should follow the naming convention '%s'.", name, convention)).Emit()
		}
	}
}

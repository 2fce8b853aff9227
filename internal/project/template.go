package project

import (
	"fmt"

	"codespice/internal/config"
)

// DefaultTOML renders a codespice.toml with every key set to its default.
func DefaultTOML() string {
	d := config.Default()
	return fmt.Sprintf(`# codespice configuration
# Keys left out fall back to the built-in defaults.

[fileLength]
maxLines = %d

[lineLength]
maxLength = %d

[commenting]
requireHeader = %t

[namingConventions]
# camelCase | PascalCase | UPPER_CASE | snake_case | none
# left empty, every name is accepted
variable = %q

[function]
maxCyclomatic = %d
maxLines = %d
parameters = %d
validateParameters = %t
explicitVoid = %t
stackAddress = %t
# true: if/while/for/... are never function names
skipKeywords = %t

[macro]
checkAll = %t

[uninitialized]
# true: ignore return/goto/case/... statements, typedef and # lines
skipKeywords = %t

[engine]
unifiedReplace = %t

[files]
exclude = []
`,
		d.FileLength.MaxLines,
		d.LineLength.MaxLength,
		d.Commenting.RequireHeader,
		string(d.NamingConventions.Variable),
		d.Function.MaxCyclomatic,
		d.Function.MaxLines,
		d.Function.Parameters,
		d.Function.ValidateParameters,
		d.Function.ExplicitVoid,
		d.Function.StackAddress,
		d.Function.SkipKeywords,
		d.Macro.CheckAll,
		d.Uninitialized.SkipKeywords,
		d.Engine.UnifiedReplace,
	)
}

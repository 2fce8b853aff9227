package diag

import (
	"fmt"
)

// Code identifies a single check. Codes are grouped in blocks of 1000, one block
// per rule Tag; the block decides the tag and the textual prefix.
type Code uint16

const (
	UnknownCode Code = 0

	// LineCount
	LineFileTooLong Code = 1001
	LineTooLong     Code = 1002

	// Commenting
	CommentMissingHeader Code = 2001

	// Naming
	NamingConvention Code = 3001

	// Function
	FnTooLong             Code = 4001
	FnTooManyParams       Code = 4002
	FnTooComplex          Code = 4003
	FnParamNotValidated   Code = 4004
	FnImplicitVoid        Code = 4005
	FnReturnsStackAddress Code = 4006

	// Macro
	MacroMissingDoWhile Code = 5001

	// Uninitialized
	VarUninitialized Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown diagnostic",
	LineFileTooLong:       "File exceeds the configured line count",
	LineTooLong:           "Line exceeds the configured length",
	CommentMissingHeader:  "File does not start with a comment header",
	NamingConvention:      "Identifier does not follow the naming convention",
	FnTooLong:             "Function body exceeds the configured line count",
	FnTooManyParams:       "Function takes too many parameters",
	FnTooComplex:          "Function cyclomatic complexity is too high",
	FnParamNotValidated:   "Parameter is never checked before use",
	FnImplicitVoid:        "Empty parameter list without explicit void",
	FnReturnsStackAddress: "Function returns the address of a local variable",
	MacroMissingDoWhile:   "Multi-line macro is not wrapped in do { } while (0)",
	VarUninitialized:      "Variable is declared without an initializer",
}

// Codes returns every known code except UnknownCode in ascending order.
func Codes() []Code {
	return []Code{
		LineFileTooLong, LineTooLong,
		CommentMissingHeader,
		NamingConvention,
		FnTooLong, FnTooManyParams, FnTooComplex, FnParamNotValidated, FnImplicitVoid, FnReturnsStackAddress,
		MacroMissingDoWhile,
		VarUninitialized,
	}
}

// Tag returns the rule the code belongs to.
func (c Code) Tag() Tag {
	if c == UnknownCode || c >= 7000 {
		return TagUnknown
	}
	return Tag(c / 1000)
}

func (c Code) ID() string {
	if t := c.Tag(); t != TagUnknown {
		return fmt.Sprintf("%s%04d", t.prefix(), int(c))
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

package checks

import (
	"fmt"
	"unicode/utf8"

	"codespice/internal/diag"
)

// LineBudget enforces fileLength.maxLines and lineLength.maxLength.
var LineBudget = &Analyzer{
	Name: "linebudget",
	Tag:  diag.TagLineCount,
	Doc:  "file length and line length limits",
	Run:  runLineBudget,
}

func runLineBudget(p *Pass) {
	f := p.File
	maxLines := p.Config.FileLength.MaxLines
	if f.LineCount() > maxLines {
		p.warn(diag.LineFileTooLong, f.FullSpan(),
			fmt.Sprintf("Your code exceeds %d lines. Consider refactoring.", maxLines)).Emit()
	}

	maxLen := p.Config.LineLength.MaxLength
	for i, line := range f.Lines() {
		// длина в символах, а не в байтах
		if utf8.RuneCountInString(line) <= maxLen {
			continue
		}
		p.warn(diag.LineTooLong, f.LineSpan(i),
			fmt.Sprintf("Line exceeds the maximum length of %d characters.", maxLen)).Emit()
	}
}

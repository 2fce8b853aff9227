package checks

import (
	"bytes"
	"strings"

	"codespice/internal/diag"
	"codespice/internal/fix"
	"codespice/internal/source"
)

// CommentHeader requires the first line of a file to be a // comment.
var CommentHeader = &Analyzer{
	Name: "commentheader",
	Tag:  diag.TagCommenting,
	Doc:  "files must start with a // comment header",
	Run:  runCommentHeader,
}

func runCommentHeader(p *Pass) {
	if !p.Config.Commenting.RequireHeader || len(bytes.TrimSpace(p.File.Content)) == 0 {
		return
	}
	first := strings.TrimSpace(p.File.Line(0))
	if strings.HasPrefix(first, "//") {
		return
	}
	start := p.File.PointSpan(0, 0)
	p.warn(diag.CommentMissingHeader, start, "Comment header is required at the beginning of the file.").
		Suggest(fix.InsertText("insert comment header", start,
			"// "+source.BaseName(p.File.Path)+"\n", "")).
		Emit()
}

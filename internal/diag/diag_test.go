package diag

import (
	"strings"
	"testing"

	"codespice/internal/source"
)

func TestCodeTagAndID(t *testing.T) {
	tests := []struct {
		code Code
		tag  Tag
		id   string
	}{
		{LineFileTooLong, TagLineCount, "LIN1001"},
		{CommentMissingHeader, TagCommenting, "CMT2001"},
		{NamingConvention, TagNaming, "NAM3001"},
		{FnTooManyParams, TagFunction, "FUN4002"},
		{MacroMissingDoWhile, TagMacro, "MAC5001"},
		{VarUninitialized, TagUninitialized, "VAR6001"},
		{UnknownCode, TagUnknown, "E0000"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := tt.code.Tag(); got != tt.tag {
				t.Fatalf("Tag() = %v, want %v", got, tt.tag)
			}
			if got := tt.code.ID(); got != tt.id {
				t.Fatalf("ID() = %q, want %q", got, tt.id)
			}
		})
	}
	for _, c := range Codes() {
		if c.Title() == codeDescription[UnknownCode] {
			t.Fatalf("code %d has no description", c)
		}
	}
}

func TestParseTag(t *testing.T) {
	for _, tag := range Tags() {
		got, ok := ParseTag(tag.String())
		if !ok || got != tag {
			t.Fatalf("ParseTag(%q) = %v, %v", tag.String(), got, ok)
		}
	}
	if _, ok := ParseTag("naming"); ok {
		t.Fatalf("ParseTag must be case sensitive")
	}
}

func TestPendingEmitsOnce(t *testing.T) {
	bag := NewBag(0)
	r := BagReporter{Bag: bag}
	sp := source.Span{File: 0, Start: 4, End: 10}

	p := Warn(r, NamingConvention, sp, "bad name").
		Note(source.Span{Start: 0, End: 3}, "declared here").
		Suggest(Fix{Title: "rename"})
	p.Emit()
	p.Emit()
	Warn(BagReporter{}, NamingConvention, sp, "dropped").Emit()

	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Severity != SevWarning || len(d.Notes) != 1 || len(d.Fixes) != 1 || d.Fixes[0].Title != "rename" {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
}

func TestBagLimitAndSort(t *testing.T) {
	bag := NewBag(3)
	a := NewWarning(FnTooLong, source.Span{Start: 10, End: 12}, "a")
	b := NewWarning(LineTooLong, source.Span{Start: 0, End: 5}, "b")
	if !bag.Add(a) || !bag.Add(b) || !bag.Add(a) {
		t.Fatalf("adds under the limit must succeed")
	}
	if bag.Add(b) {
		t.Fatalf("limit not enforced")
	}
	bag.Sort()
	items := bag.Items()
	if len(items) != 3 || items[0].Code != LineTooLong || items[1].Key() != items[2].Key() {
		t.Fatalf("unexpected items %+v", items)
	}
	counts := bag.CountByTag()
	if counts[TagFunction] != 2 || counts[TagLineCount] != 1 {
		t.Fatalf("CountByTag = %v", counts)
	}
}

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")
	id := fs.Add("/workspace/src/main.c", []byte("int a;\nint Bad;\n"), 0)

	diags := []Diagnostic{
		NewWarning(NamingConvention, source.Span{File: id, Start: 11, End: 14}, "second\nline").
			WithNote(source.Span{File: id, Start: 0, End: 3}, "declared here"),
		NewWarning(CommentMissingHeader, source.Span{File: id}, "header"),
	}

	want := "warning CMT2001 src/main.c:1:1 header\n" +
		"note NAM3001 src/main.c:1:1 declared here\n" +
		"warning NAM3001 src/main.c:2:5 second line"
	if got := FormatShortDiagnostics(diags, fs, true); got != want {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
	if got := FormatShortDiagnostics(diags, fs, false); strings.Contains(got, "note") {
		t.Fatalf("notes rendered without includeNotes:\n%s", got)
	}
}

package diagfmt

import (
	"io"

	"codespice/internal/diag"
	"codespice/internal/source"
)

// Short prints one line per diagnostic: "severity CODE path:line:col message".
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, showNotes bool) error {
	out := diag.FormatShortDiagnostics(bag.Items(), fs, showNotes)
	if out == "" {
		return nil
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}

// Package engine decides which rules run over a document and how their
// output is merged into what the editor or the CLI already shows.
//
// Every analyzer yields one batch under its rule tag. A batch either
// replaces the tag's previous diagnostics or is appended to them, with
// duplicates dropped. Scanning is gated by a two-state machine that a
// language-server command can flip while documents are being analyzed.
package engine

// Package diag defines the diagnostic model shared by every check.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error. Rules currently report warnings only.
//   - Code: compact numeric identifier (codes.go) with a stable string form
//     such as FUN4002. Each code belongs to one rule Tag (LineCount,
//     Commenting, Naming, Function, Macro, Uninitialized).
//   - Message: human oriented text.
//   - Primary: the source.Span the finding points at. Rules that report
//     "at document start" use an empty span at offset 0.
//   - Notes and Fixes: optional context and structured text edits.
//
// Key (tag, primary span, message) is the identity the rule engine's
// Append merge policy deduplicates on.
//
// # Emitting
//
// Checks emit through a Reporter, normally via Warn(...).Note(...).Emit().
// BagReporter collects into a Bag.
//
// Rendering lives in internal/diagfmt and applying fixes in internal/fix.
package diag

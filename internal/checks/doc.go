// Package checks contains the text-scanning rules for C/C++ sources.
//
// Every rule is an Analyzer that reads one source.File through a Pass and
// reports diagnostics tagged with its rule. The rules are line-oriented
// heuristics built on regular expressions: braces, keywords and identifiers
// inside string literals or comments are not told apart from code. That is
// an accepted approximation, not something individual rules try to patch.
//
// Analyzers are pure: no I/O, no shared state, no goroutines.
package checks

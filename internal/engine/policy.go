package engine

import (
	"codespice/internal/config"
	"codespice/internal/diag"
)

// MergePolicy says how a new batch for a tag combines with the previous one.
type MergePolicy uint8

const (
	// Replace discards the previous batch.
	Replace MergePolicy = iota
	// Append keeps the previous batch and adds entries not seen yet.
	Append
)

func (p MergePolicy) String() string {
	if p == Append {
		return "append"
	}
	return "replace"
}

// PolicyFor returns the merge policy of tag under cfg.
func PolicyFor(tag diag.Tag, cfg config.Config) MergePolicy {
	if cfg.Engine.UnifiedReplace {
		return Replace
	}
	switch tag {
	case diag.TagLineCount, diag.TagCommenting:
		return Replace
	default:
		return Append
	}
}

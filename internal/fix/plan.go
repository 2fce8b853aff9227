package fix

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"strings"

	"codespice/internal/diag"
	"codespice/internal/source"
)

// filePlan holds edits accepted for one file. Spans always refer to the
// original content, so accepted edits never shift each other.
type filePlan struct {
	file  *source.File
	edits []diag.TextEdit
}

func (p *filePlan) overlaps(e diag.TextEdit) bool {
	return slices.ContainsFunc(p.edits, func(prev diag.TextEdit) bool { return spansConflict(prev, e) })
}

// render splices the accepted edits into the original content. Insertions
// at the same offset keep their acceptance order.
func (p *filePlan) render() []byte {
	edits := slices.Clone(p.edits)
	slices.SortStableFunc(edits, func(a, b diag.TextEdit) int { return cmp.Compare(a.Span.Start, b.Span.Start) })

	var sb strings.Builder
	src := p.file.Content
	cursor := uint32(0)
	for _, e := range edits {
		sb.Write(src[cursor:e.Span.Start])
		sb.WriteString(e.NewText)
		cursor = e.Span.End
	}
	sb.Write(src[cursor:])
	return []byte(sb.String())
}

type planSet struct {
	fs     *source.FileSet
	dryRun bool
	plans  map[source.FileID]*filePlan
}

func newPlanSet(fs *source.FileSet, dryRun bool) *planSet {
	return &planSet{fs: fs, dryRun: dryRun, plans: make(map[source.FileID]*filePlan)}
}

// accept validates every edit of f and records them all, or none.
// It returns the edit count or a skip reason.
func (s *planSet) accept(f diag.Fix) (int, string) {
	staged := make(map[source.FileID][]diag.TextEdit)
	for _, e := range f.Edits {
		if int(e.Span.File) >= s.fs.Len() {
			return 0, "target file is unknown"
		}
		file := s.fs.Get(e.Span.File)
		if file.Flags&source.FileVirtual != 0 && !s.dryRun {
			return 0, "target file is virtual"
		}
		if e.Span.End < e.Span.Start || int(e.Span.End) > len(file.Content) {
			return 0, "edit span out of range"
		}
		if e.OldText != "" && string(file.Content[e.Span.Start:e.Span.End]) != e.OldText {
			return 0, "existing text does not match expected content"
		}
		pending := filePlan{file: file, edits: staged[file.ID]}
		if plan := s.plans[file.ID]; (plan != nil && plan.overlaps(e)) || pending.overlaps(e) {
			return 0, "conflicts with previously applied edits in " + file.FormatPath("auto", s.fs.BaseDir())
		}
		staged[file.ID] = append(staged[file.ID], e)
	}
	for id, edits := range staged {
		plan := s.plans[id]
		if plan == nil {
			plan = &filePlan{file: s.fs.Get(id)}
			s.plans[id] = plan
		}
		plan.edits = append(plan.edits, edits...)
	}
	return len(f.Edits), ""
}

// flush renders every touched file, writing it unless dry-run is set.
// Changes come back sorted by relative path.
func (s *planSet) flush() ([]FileChange, error) {
	base := s.fs.BaseDir()
	plans := make([]*filePlan, 0, len(s.plans))
	for _, plan := range s.plans {
		plans = append(plans, plan)
	}
	slices.SortFunc(plans, func(a, b *filePlan) int {
		return strings.Compare(a.file.FormatPath("relative", base), b.file.FormatPath("relative", base))
	})

	changes := make([]FileChange, 0, len(plans))
	for _, plan := range plans {
		content := plan.render()
		if !s.dryRun {
			if err := writeKeepingMode(plan.file.Path, content); err != nil {
				return changes, err
			}
		}
		changes = append(changes, FileChange{
			Path:      plan.file.FormatPath("relative", base),
			EditCount: len(plan.edits),
			Content:   content,
		})
	}
	return changes, nil
}

func writeKeepingMode(path string, content []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode()
	}
	if err := os.WriteFile(path, content, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// spansConflict reports whether two edits touch overlapping text.
// Spans are half-open. Two insertions never conflict; an insertion
// conflicts with a non-empty span when it lands in [Start, End).
func spansConflict(a, b diag.TextEdit) bool {
	as, ae, bs, be := a.Span.Start, a.Span.End, b.Span.Start, b.Span.End
	switch {
	case as == ae && bs == be:
		return false
	case as == ae:
		return bs <= as && as < be
	case bs == be:
		return as <= bs && bs < ae
	}
	return as < be && bs < ae
}

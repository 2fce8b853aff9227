package fix

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"codespice/internal/diag"
	"codespice/internal/source"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// ApplyMode determines selection strategy for fixes.
type ApplyMode uint8

const (
	ApplyModeOnce ApplyMode = iota
	ApplyModeAll
	ApplyModeID
)

// ApplyOptions configures how fixes are selected.
type ApplyOptions struct {
	Mode     ApplyMode
	TargetID string
	// Heuristic lets ApplyModeAll take safe-with-heuristics fixes too.
	Heuristic bool
	// DryRun computes FileChange.Content without writing files.
	DryRun bool
}

// AppliedFix records a successfully applied fix.
type AppliedFix struct {
	ID            string
	Title         string
	Code          diag.Code
	Message       string
	Applicability diag.FixApplicability
	PrimaryPath   string
	EditCount     int
}

// SkippedFix captures a skipped or failed fix with a reason.
type SkippedFix struct {
	ID     string
	Title  string
	Reason string
}

// FileChange summarises modifications performed on a file.
type FileChange struct {
	Path      string
	EditCount int
	// Content is the new file content.
	Content []byte
}

// ApplyResult aggregates applied fixes, skipped ones, and file changes.
type ApplyResult struct {
	Applied     []AppliedFix
	Skipped     []SkippedFix
	FileChanges []FileChange
}

func (r *ApplyResult) skip(f diag.Fix, reason string) {
	r.Skipped = append(r.Skipped, SkippedFix{ID: f.ID, Title: f.Title, Reason: reason})
}

// offer is one fix together with the diagnostic that carried it.
type offer struct {
	owner diag.Diagnostic
	fix   diag.Fix
	seq   int
}

// AssignIDs gives every fix without an ID a stable one of the form
// CODE@path:line:col, with "#n" appended for the n-th extra fix of a diagnostic.
func AssignIDs(fs *source.FileSet, diagnostics []diag.Diagnostic) {
	for i := range diagnostics {
		fixes := diagnostics[i].Fixes
		for j := range fixes {
			if fixes[j].ID == "" {
				fixes[j].ID = fixID(fs, diagnostics[i], j)
			}
		}
	}
}

func fixID(fs *source.FileSet, d diag.Diagnostic, idx int) string {
	id := fmt.Sprintf("%s@%d:%d", d.Code.ID(), d.Primary.File, d.Primary.Start)
	if path := relPath(fs, d.Primary.File); path != "" {
		start, _ := fs.Resolve(d.Primary)
		id = fmt.Sprintf("%s@%s:%d:%d", d.Code.ID(), path, start.Line, start.Col)
	}
	if idx > 0 {
		id += fmt.Sprintf("#%d", idx+1)
	}
	return id
}

// Apply collects fixes from diagnostics, selects a subset according to opts, and applies them.
func Apply(fs *source.FileSet, diagnostics []diag.Diagnostic, opts ApplyOptions) (*ApplyResult, error) {
	res := &ApplyResult{
		Applied:     []AppliedFix{},
		Skipped:     []SkippedFix{},
		FileChanges: []FileChange{},
	}
	if fs == nil {
		return res, fmt.Errorf("fix: FileSet is nil")
	}

	picked := pick(collect(fs, diagnostics, res), opts, res)
	if len(picked) == 0 {
		return res, ErrNoFixes
	}

	plans := newPlanSet(fs, opts.DryRun)
	for _, o := range picked {
		n, reason := plans.accept(o.fix)
		if reason != "" {
			res.skip(o.fix, reason)
			continue
		}
		res.Applied = append(res.Applied, AppliedFix{
			ID:            o.fix.ID,
			Title:         o.fix.Title,
			Code:          o.owner.Code,
			Message:       o.owner.Message,
			Applicability: o.fix.Applicability,
			PrimaryPath:   relPath(fs, o.owner.Primary.File),
			EditCount:     n,
		})
	}
	if len(res.Applied) == 0 {
		return res, ErrNoFixes
	}

	changes, err := plans.flush()
	res.FileChanges = append(res.FileChanges, changes...)
	return res, err
}

// collect flattens diagnostics into offers ordered by primary span.
// Fixes without edits or with an already seen ID land in res.Skipped.
func collect(fs *source.FileSet, diagnostics []diag.Diagnostic, res *ApplyResult) []offer {
	var out []offer
	seen := make(map[string]bool)
	for _, d := range diagnostics {
		for idx, f := range d.Fixes {
			if f.ID == "" {
				f.ID = fixID(fs, d, idx)
			}
			switch {
			case len(f.Edits) == 0:
				res.skip(f, "fix has no edits")
			case seen[f.ID]:
				res.skip(f, "duplicate fix id")
			default:
				seen[f.ID] = true
				out = append(out, offer{owner: d, fix: f, seq: len(out)})
			}
		}
	}
	slices.SortStableFunc(out, func(a, b offer) int {
		pa, pb := a.owner.Primary, b.owner.Primary
		return cmp.Or(
			cmp.Compare(pa.File, pb.File),
			cmp.Compare(pa.Start, pb.Start),
			cmp.Compare(pa.End, pb.End),
			cmp.Compare(a.seq, b.seq),
		)
	})
	return out
}

func pick(offers []offer, opts ApplyOptions, res *ApplyResult) []offer {
	if len(offers) == 0 {
		return nil
	}
	switch opts.Mode {
	case ApplyModeID:
		i := slices.IndexFunc(offers, func(o offer) bool { return o.fix.ID == opts.TargetID })
		if i < 0 {
			res.Skipped = append(res.Skipped, SkippedFix{ID: opts.TargetID, Reason: "fix id not found"})
			return nil
		}
		return offers[i : i+1]
	case ApplyModeAll:
		var out []offer
		for _, o := range offers {
			if allowed(o.fix.Applicability, opts.Heuristic) {
				out = append(out, o)
				continue
			}
			res.skip(o.fix, "applicability is "+o.fix.Applicability.String())
		}
		return out
	case ApplyModeOnce:
		// первый always-safe, иначе первый любой
		i := slices.IndexFunc(offers, func(o offer) bool {
			return o.fix.Applicability == diag.FixApplicabilityAlwaysSafe
		})
		return offers[max(i, 0) : max(i, 0)+1]
	}
	return nil
}

func allowed(app diag.FixApplicability, heuristic bool) bool {
	switch app {
	case diag.FixApplicabilityAlwaysSafe:
		return true
	case diag.FixApplicabilitySafeWithHeuristics:
		return heuristic
	}
	return false
}

func relPath(fs *source.FileSet, id source.FileID) string {
	if fs == nil || int(id) >= fs.Len() {
		return ""
	}
	return fs.Get(id).FormatPath("relative", fs.BaseDir())
}

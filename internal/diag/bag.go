package diag

import (
	"cmp"
	"slices"
	"strings"
)

// Bag collects diagnostics up to a limit.
type Bag struct {
	items []Diagnostic
	max   int
}

// NewBag creates a bag that accepts at most max diagnostics; max <= 0 means no limit.
func NewBag(max int) *Bag {
	size := 16
	if max > 0 && max <= 256 {
		size = max
	}
	return &Bag{items: make([]Diagnostic, 0, size), max: max}
}

// Add добавляет диагностику, учитывая лимит.
// Возвращает false, если диагностика не добавлена (достигнут лимит).
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
// ВАЖНО: не модифицируйте возвращаемый срез! (он указывает на внутренний массив Bag)
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Sort orders by file, start, end, severity (desc), code (asc), message.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
			strings.Compare(x.Message, y.Message),
		)
	})
}

// CountByTag tallies diagnostics per rule tag.
func (b *Bag) CountByTag() map[Tag]int {
	out := make(map[Tag]int)
	for _, d := range b.items {
		out[d.Tag()]++
	}
	return out
}

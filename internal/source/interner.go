package source

// StringID is a dense handle for an interned string. IDs are assigned in
// first-seen order starting at 1, so 1..Len()-1 replays insertion order.
type StringID uint32

// NoStringID is reserved for the empty string.
const NoStringID StringID = 0

// Interner maps strings to stable IDs.
type Interner struct {
	ids   map[string]StringID
	count int
}

func NewInterner() *Interner {
	return &Interner{ids: map[string]StringID{"": NoStringID}, count: 1}
}

// Intern returns the ID of s, allocating one on first sight.
func (i *Interner) Intern(s string) StringID {
	if id, ok := i.ids[s]; ok {
		return id
	}
	id := StringID(i.count)
	// своя копия, чтобы не держать исходный буфер документа
	i.ids[string([]byte(s))] = id
	i.count++
	return id
}

// Len counts interned strings including NoStringID, so it is never below 1.
func (i *Interner) Len() int {
	return i.count
}

package diag

// Tag names the rule that produced a diagnostic. The rule engine merges
// batches per tag, so every Code maps to exactly one Tag.
type Tag uint8

const (
	TagUnknown Tag = iota
	TagLineCount
	TagCommenting
	TagNaming
	TagFunction
	TagMacro
	TagUninitialized
)

// Tags lists all real tags in reporting order.
func Tags() []Tag {
	return []Tag{TagLineCount, TagCommenting, TagNaming, TagFunction, TagMacro, TagUninitialized}
}

func (t Tag) String() string {
	switch t {
	case TagLineCount:
		return "LineCount"
	case TagCommenting:
		return "Commenting"
	case TagNaming:
		return "Naming"
	case TagFunction:
		return "Function"
	case TagMacro:
		return "Macro"
	case TagUninitialized:
		return "Uninitialized"
	}
	return "Unknown"
}

// ParseTag is the inverse of Tag.String; it is case sensitive.
func ParseTag(s string) (Tag, bool) {
	for _, t := range Tags() {
		if t.String() == s {
			return t, true
		}
	}
	return TagUnknown, false
}

func (t Tag) prefix() string {
	switch t {
	case TagLineCount:
		return "LIN"
	case TagCommenting:
		return "CMT"
	case TagNaming:
		return "NAM"
	case TagFunction:
		return "FUN"
	case TagMacro:
		return "MAC"
	case TagUninitialized:
		return "VAR"
	}
	return "E"
}

package goal

import "strings"

// Flag is an exclusive resource category a goal may claim while running.
type Flag uint8

const (
	Move Flag = iota
	Look
	Jump
	Target

	flagCount
)

var flagNames = [flagCount]string{
	Move:   "MOVE",
	Look:   "LOOK",
	Jump:   "JUMP",
	Target: "TARGET",
}

func (f Flag) String() string {
	if f >= flagCount {
		return "UNKNOWN"
	}
	return flagNames[f]
}

// AllFlags lists every flag in declaration order.
func AllFlags() []Flag {
	out := make([]Flag, 0, flagCount)
	for f := Flag(0); f < flagCount; f++ {
		out = append(out, f)
	}
	return out
}

// ParseFlag maps a flag name (case-insensitive) back to its Flag.
func ParseFlag(s string) (Flag, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for f := Flag(0); f < flagCount; f++ {
		if flagNames[f] == s {
			return f, true
		}
	}
	return 0, false
}

// Flags is a set of Flag values.
type Flags uint8

func NewFlags(fs ...Flag) Flags {
	var s Flags
	for _, f := range fs {
		s = s.With(f)
	}
	return s
}

func (s Flags) Has(f Flag) bool { return f < flagCount && s&(1<<f) != 0 }

func (s Flags) With(f Flag) Flags {
	if f >= flagCount {
		return s
	}
	return s | 1<<f
}

func (s Flags) Without(f Flag) Flags       { return s &^ (1 << f) }
func (s Flags) Union(o Flags) Flags        { return s | o }
func (s Flags) Intersects(o Flags) bool    { return s&o != 0 }
func (s Flags) Empty() bool                { return s == 0 }
func (s Flags) Intersection(o Flags) Flags { return s & o }

// Slice returns the members in declaration order.
func (s Flags) Slice() []Flag {
	var out []Flag
	for f := Flag(0); f < flagCount; f++ {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Names returns the member names in declaration order.
func (s Flags) Names() []string {
	fs := s.Slice()
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.String())
	}
	return out
}

func (s Flags) String() string {
	if s == 0 {
		return "NONE"
	}
	return strings.Join(s.Names(), "|")
}

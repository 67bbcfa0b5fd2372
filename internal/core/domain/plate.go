package domain

import "strings"

const (
	MinPlateLength = 2
	MaxPlateLength = 8
)

// Plate is a UK registration in canonical form: upper-case, no whitespace.
type Plate string

// CanonicalPlate upper-cases raw input and drops every whitespace rune.
// It performs no shape or length validation.
func CanonicalPlate(raw string) Plate {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		}
		b.WriteRune(r)
	}
	return Plate(b.String())
}

// Valid reports whether p has canonical length and alphabet.
func (p Plate) Valid() bool {
	if len(p) < MinPlateLength || len(p) > MaxPlateLength {
		return false
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func (p Plate) String() string {
	return string(p)
}

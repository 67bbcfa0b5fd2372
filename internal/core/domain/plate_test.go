package domain

import "testing"

func TestCanonicalPlateStripsWhitespaceAndUppercases(t *testing.T) {
	cases := map[string]Plate{
		"ab12 cde":    "AB12CDE",
		"  a1\tbcd\n": "A1BCD",
		"":            "",
		"AB12CDE":     "AB12CDE",
	}
	for in, want := range cases {
		if got := CanonicalPlate(in); got != want {
			t.Fatalf("CanonicalPlate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlateValid(t *testing.T) {
	valid := []Plate{"AB", "AB12CDE", "ABC123DE"}
	for _, p := range valid {
		if !p.Valid() {
			t.Fatalf("expected %q to be valid", p)
		}
	}
	invalid := []Plate{"", "A", "ABC123DEF", "AB-12", "ab12cde"}
	for _, p := range invalid {
		if p.Valid() {
			t.Fatalf("expected %q to be invalid", p)
		}
	}
}

package goal

import "testing"

func TestFlags_SetOperations(t *testing.T) {
	s := NewFlags(Move, Look)
	if !s.Has(Move) || !s.Has(Look) || s.Has(Jump) {
		t.Fatalf("membership: %s", s)
	}
	if !s.Intersects(NewFlags(Look, Target)) {
		t.Fatalf("expected overlap")
	}
	if s.Intersects(NewFlags(Jump, Target)) {
		t.Fatalf("unexpected overlap")
	}
	if got := s.Without(Move).String(); got != "LOOK" {
		t.Fatalf("without: %s", got)
	}
	if got := s.Union(NewFlags(Target)).String(); got != "MOVE|LOOK|TARGET" {
		t.Fatalf("union: %s", got)
	}
	if got := Flags(0).String(); got != "NONE" {
		t.Fatalf("empty: %s", got)
	}
}

func TestParseFlag(t *testing.T) {
	for _, f := range AllFlags() {
		got, ok := ParseFlag(f.String())
		if !ok || got != f {
			t.Fatalf("parse %s: %v %v", f, got, ok)
		}
	}
	if _, ok := ParseFlag("fly"); ok {
		t.Fatalf("unknown flag parsed")
	}
	if f, ok := ParseFlag(" move "); !ok || f != Move {
		t.Fatalf("case-insensitive parse failed")
	}
}

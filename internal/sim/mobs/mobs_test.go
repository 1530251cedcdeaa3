package mobs

import (
	"errors"
	"testing"

	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
)

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup("dragon"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestArchetypes_Build(t *testing.T) {
	for _, kind := range Kinds() {
		a, err := Lookup(kind)
		if err != nil {
			t.Fatal(err)
		}
		m := mob.New(mob.Config{ID: "M1", Kind: kind, MaxHP: a.MaxHP})
		if err := a.Build(m); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if m.Goals.Len() == 0 {
			t.Fatalf("%s: no behavior goals", kind)
		}
		// Target selectors only ever claim TARGET.
		for _, e := range m.Targets.Entries() {
			if e.Flags != goal.NewFlags(goal.Target) {
				t.Fatalf("%s: target goal %s claims %s", kind, e.Name, e.Flags)
			}
		}
		for _, e := range m.Goals.Entries() {
			if e.Flags.Has(goal.Target) {
				t.Fatalf("%s: behavior goal %s claims TARGET", kind, e.Name)
			}
		}
	}
}

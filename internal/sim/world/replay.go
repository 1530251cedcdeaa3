package world

import (
	"bytes"
	"encoding/json"
	"fmt"

	"mobcraft.ai/internal/sim/terrain"
)

// ApplyRecorded re-issues the despawns and spawns a recorded trace saw before
// its tick was stepped. Spawned ids must match the recording.
func (w *World) ApplyRecorded(t TickTrace) error {
	if t.Tick != w.CurrentTick() {
		return fmt.Errorf("recorded tick %d, world at %d", t.Tick, w.CurrentTick())
	}
	for _, id := range t.Despawns {
		if !w.Despawn(id) {
			return fmt.Errorf("tick %d: despawn of unknown mob %s", t.Tick, id)
		}
	}
	for _, sp := range t.Spawns {
		m, err := w.Spawn(sp.Kind, terrain.Vec3i{X: sp.Pos[0], Y: sp.Pos[1], Z: sp.Pos[2]})
		if err != nil {
			return fmt.Errorf("tick %d: %w", t.Tick, err)
		}
		if m.ID != sp.MobID {
			return fmt.Errorf("tick %d: spawned %s, recording has %s", t.Tick, m.ID, sp.MobID)
		}
	}
	return nil
}

// Mismatch describes the first tick where a replay diverged.
type Mismatch struct {
	Tick uint64
	Want TickTrace
	Got  TickTrace
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("replay diverged at tick %d", m.Tick)
}

// Verify steps w through the recorded traces (ascending ticks, empty ticks
// omitted) and returns a *Mismatch at the first tick whose trace differs.
// w must be freshly created with the recording's config.
func (w *World) Verify(recorded []TickTrace) error {
	for _, want := range recorded {
		for w.CurrentTick() < want.Tick {
			if got := w.Step(); !got.Empty() {
				return &Mismatch{Tick: got.Tick, Want: TickTrace{WorldID: w.cfg.ID, Tick: got.Tick}, Got: got}
			}
		}
		if w.CurrentTick() != want.Tick {
			return fmt.Errorf("recorded ticks out of order at %d", want.Tick)
		}
		if err := w.ApplyRecorded(want); err != nil {
			return err
		}
		got := w.Step()
		if !SameTrace(want, got) {
			return &Mismatch{Tick: want.Tick, Want: want, Got: got}
		}
	}
	return nil
}

// SameTrace compares traces by their JSON encoding, so a decoded trace equals
// the live one it was written from.
func SameTrace(a, b TickTrace) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && bytes.Equal(ab, bb)
}

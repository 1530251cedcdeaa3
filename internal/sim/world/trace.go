package world

import "mobcraft.ai/internal/sim/goal"

// TickTrace is everything that changed in the goal layer during one tick.
// Ticks with nothing to report are not emitted.
type TickTrace struct {
	WorldID     string             `json:"world_id"`
	Tick        uint64             `json:"tick"`
	Spawns      []SpawnRecord      `json:"spawns,omitempty"`
	Transitions []TransitionRecord `json:"transitions,omitempty"`
	Despawns    []string           `json:"despawns,omitempty"`
	Deaths      []string           `json:"deaths,omitempty"`
}

func (t TickTrace) Empty() bool {
	return len(t.Spawns) == 0 && len(t.Transitions) == 0 && len(t.Despawns) == 0 && len(t.Deaths) == 0
}

type SpawnRecord struct {
	MobID string `json:"mob_id"`
	Kind  string `json:"kind"`
	Pos   [3]int `json:"pos"`
}

type TransitionRecord struct {
	MobID    string   `json:"mob_id"`
	Selector string   `json:"selector"`
	Kind     string   `json:"kind"`
	Reason   string   `json:"reason,omitempty"`
	Priority int      `json:"priority"`
	Name     string   `json:"name"`
	Flags    []string `json:"flags,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (r TransitionRecord) Faulted() bool { return r.Kind == goal.Faulted.String() }

// TraceSink receives every non-empty TickTrace on the simulation goroutine.
type TraceSink interface {
	WriteTrace(trace TickTrace) error
}

// recorder turns selector transitions of one mob into trace records.
func (w *World) recorder(mobID string) goal.Observer {
	return goal.ObserverFunc(func(t goal.Transition) {
		rec := TransitionRecord{
			MobID:    mobID,
			Selector: t.Selector,
			Kind:     t.Kind.String(),
			Reason:   string(t.Reason),
			Priority: t.Priority,
			Name:     t.Name,
			Flags:    t.Flags.Names(),
		}
		if t.Err != nil {
			rec.Error = t.Err.Error()
		}
		w.pending.Transitions = append(w.pending.Transitions, rec)
	})
}

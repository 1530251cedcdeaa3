package world

import (
	"encoding/json"

	"mobcraft.ai/internal/protocol"
	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
)

// WatchRequest subscribes a debug session to per-tick GOALS frames. Empty
// filters watch every mob.
type WatchRequest struct {
	SessionID string
	Out       chan []byte
	MobIDs    []string
	Kinds     []string
}

type watcher struct {
	id    string
	out   chan []byte
	ids   map[string]bool
	kinds map[string]bool
}

func (wt *watcher) wants(m *mob.Mob) bool {
	if len(wt.ids) == 0 && len(wt.kinds) == 0 {
		return true
	}
	return wt.ids[m.ID] || wt.kinds[m.Kind]
}

func setOf(xs []string) map[string]bool {
	if len(xs) == 0 {
		return nil
	}
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}

func (w *World) handleWatch(req WatchRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	if old := w.watchers[req.SessionID]; old != nil && old.out != req.Out {
		close(old.out)
	}
	w.watchers[req.SessionID] = &watcher{
		id:    req.SessionID,
		out:   req.Out,
		ids:   setOf(req.MobIDs),
		kinds: setOf(req.Kinds),
	}
}

func (w *World) handleUnwatch(sessionID string) {
	if wt := w.watchers[sessionID]; wt != nil {
		close(wt.out)
		delete(w.watchers, sessionID)
	}
}

// Frame builds the GOALS frame for the mobs accepted by keep (all when nil).
func (w *World) Frame(trace TickTrace, keep func(*mob.Mob) bool) protocol.GoalsMsg {
	msg := protocol.GoalsMsg{
		Type:            protocol.TypeGoals,
		ProtocolVersion: protocol.Version,
		WorldID:         w.cfg.ID,
		Tick:            trace.Tick,
		Mobs:            []protocol.MobGoals{},
	}
	watched := map[string]bool{}
	for _, id := range w.order {
		m := w.mobs[id]
		if keep != nil && !keep(m) {
			continue
		}
		watched[id] = true
		msg.Mobs = append(msg.Mobs, mobGoals(m))
	}
	for _, r := range trace.Transitions {
		if keep != nil && !watched[r.MobID] {
			continue
		}
		msg.Transitions = append(msg.Transitions, protocol.TransitionRef{
			MobID:    r.MobID,
			Selector: r.Selector,
			Kind:     r.Kind,
			Reason:   r.Reason,
			Priority: r.Priority,
			Name:     r.Name,
			Flags:    r.Flags,
			Error:    r.Error,
		})
	}
	return msg
}

func mobGoals(m *mob.Mob) protocol.MobGoals {
	out := protocol.MobGoals{
		ID:      m.ID,
		Kind:    m.Kind,
		Pos:     m.Pos.Array(),
		HP:      m.HP,
		Goals:   running(m.Goals),
		Targets: running(m.Targets),
	}
	if t := m.Target(); t != nil {
		out.Target = t.ID
	}
	if d := m.Goals.DisabledFlags(); !d.Empty() {
		out.Disabled = d.Names()
	}
	return out
}

func running(s *goal.Selector) []protocol.RunningGoal {
	out := []protocol.RunningGoal{}
	for _, e := range s.Entries() {
		if !e.Running {
			continue
		}
		out = append(out, protocol.RunningGoal{Priority: e.Priority, Name: e.Name, Flags: e.Flags.Names()})
	}
	return out
}

func (w *World) broadcast(trace TickTrace) {
	for _, wt := range w.watchers {
		b, err := json.Marshal(w.Frame(trace, wt.wants))
		if err != nil {
			w.logf("frame %s: %v", wt.id, err)
			continue
		}
		sendLatest(wt.out, b)
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

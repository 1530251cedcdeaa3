package world

import "time"

// Step advances the world by one tick: AI for every living mob in id order,
// then movement, then deaths. It returns the tick's trace (possibly empty).
// Not safe to call concurrently with Run.
func (w *World) Step() TickTrace {
	start := time.Now()
	nowTick := w.tick.Load()

	for _, id := range w.order {
		w.mobs[id].Tick()
	}
	for _, id := range w.order {
		m := w.mobs[id]
		if m.Alive() && m.Nav() != nil {
			m.Pos = m.Nav().Advance(m.Pos)
		}
	}

	var dead []string
	for _, id := range w.order {
		if m := w.mobs[id]; !m.Alive() {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		w.mobs[id].Discard()
		w.remove(id)
	}

	trace := w.pending
	trace.WorldID = w.cfg.ID
	trace.Tick = nowTick
	trace.Deaths = dead
	w.pending = TickTrace{}

	w.emit(trace)
	w.broadcast(trace)
	w.recordMetrics(trace, time.Since(start))

	w.tick.Add(1)
	return trace
}

func (w *World) emit(trace TickTrace) {
	if trace.Empty() {
		return
	}
	for _, s := range w.sinks {
		if err := s.WriteTrace(trace); err != nil {
			w.logf("trace sink: %v", err)
		}
	}
}

// Shutdown despawns every mob in id order, halting all running goals, and
// writes the resulting trace to the sinks. Call it once the run loop has
// returned and before the sinks are closed. The trace carries the next,
// unstepped tick so a replay reproduces it as a tick of despawns.
func (w *World) Shutdown() TickTrace {
	ids := append([]string(nil), w.order...)
	for _, id := range ids {
		w.Despawn(id)
	}
	trace := w.pending
	trace.WorldID = w.cfg.ID
	trace.Tick = w.tick.Load()
	w.pending = TickTrace{}
	w.emit(trace)
	return trace
}

// StepN runs n steps and returns the non-empty traces.
func (w *World) StepN(n int) []TickTrace {
	var out []TickTrace
	for i := 0; i < n; i++ {
		if t := w.Step(); !t.Empty() {
			out = append(out, t)
		}
	}
	return out
}

func (w *World) logf(format string, args ...any) {
	if w.log != nil {
		w.log.Printf(format, args...)
	}
}

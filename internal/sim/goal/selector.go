package goal

import (
	"errors"
	"log"
	"sort"
)

var (
	ErrNilGoal       = errors.New("goal: nil goal")
	ErrDuplicateGoal = errors.New("goal: goal already registered")
)

type entry struct {
	priority int
	goal     Goal

	running bool
	// claimed is the flag snapshot taken at activation.
	claimed Flags
	faulted bool
	warned  bool
}

type opKind uint8

const (
	opAdd opKind = iota + 1
	opRemove
	opRemoveIf
	opStopAll
)

type pendingOp struct {
	kind     opKind
	priority int
	goal     Goal
	pred     func(priority int, g Goal) bool
}

// Selector arbitrates a set of prioritized goals for one entity. Lower
// priority values take precedence; equal priorities keep registration order.
//
// Running goals never share a flag. Each full pass first retires running goals
// that can no longer continue (or claim a disabled flag), then walks idle goals
// in precedence order and starts those whose flags are free or held only by
// interruptible goals of strictly lower precedence, stopping those holders.
// Finally every running goal is ticked.
//
// A Selector is not safe for concurrent use. Registration changes requested
// from inside a goal callback are buffered and applied when the pass ends.
type Selector struct {
	name     string
	entries  []*entry
	locked   [flagCount]*entry
	disabled Flags

	busy    bool
	pending []pendingOp

	log        *log.Logger
	observer   Observer
	checkFlags bool
}

type Option func(*Selector)

// WithName labels the selector in logs and transitions ("goals", "targets").
func WithName(name string) Option { return func(s *Selector) { s.name = name } }

func WithLogger(l *log.Logger) Option { return func(s *Selector) { s.log = l } }

func WithObserver(o Observer) Option { return func(s *Selector) { s.observer = o } }

// WithFlagChecks makes each full pass compare a running goal's Flags() with
// its activation snapshot and log a mismatch once per activation.
func WithFlagChecks(on bool) Option { return func(s *Selector) { s.checkFlags = on } }

func NewSelector(opts ...Option) *Selector {
	s := &Selector{name: "goals"}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Selector) Name() string { return s.name }

// Add registers g at priority. During a pass the registration takes effect
// when the pass ends.
func (s *Selector) Add(priority int, g Goal) error {
	if g == nil {
		return ErrNilGoal
	}
	// Mid-pass requests are checked when applied, after the removals queued
	// before them.
	if s.busy {
		s.pending = append(s.pending, pendingOp{kind: opAdd, priority: priority, goal: g})
		return nil
	}
	if s.has(g) {
		return ErrDuplicateGoal
	}
	s.insert(priority, g)
	return nil
}

// Remove unregisters g, stopping it first if it is running.
func (s *Selector) Remove(g Goal) {
	if g == nil {
		return
	}
	if s.busy {
		s.pending = append(s.pending, pendingOp{kind: opRemove, goal: g})
		return
	}
	s.busy = true
	defer s.end()
	s.removeWhere(func(_ int, cand Goal) bool { return cand == g })
}

// RemoveAllOfPriority unregisters every goal registered at priority.
func (s *Selector) RemoveAllOfPriority(priority int) {
	s.RemoveIf(func(p int, _ Goal) bool { return p == priority })
}

// RemoveIf unregisters every goal matching pred, stopping running ones.
func (s *Selector) RemoveIf(pred func(priority int, g Goal) bool) {
	if pred == nil {
		return
	}
	if s.busy {
		s.pending = append(s.pending, pendingOp{kind: opRemoveIf, pred: pred})
		return
	}
	s.busy = true
	defer s.end()
	s.removeWhere(pred)
}

// DisableFlag suppresses f: running goals claiming it are retired on the next
// full pass and idle goals claiming it are not started.
func (s *Selector) DisableFlag(f Flag) { s.disabled = s.disabled.With(f) }

func (s *Selector) EnableFlag(f Flag) { s.disabled = s.disabled.Without(f) }

func (s *Selector) SetFlagEnabled(f Flag, enabled bool) {
	if enabled {
		s.EnableFlag(f)
	} else {
		s.DisableFlag(f)
	}
}

func (s *Selector) DisabledFlags() Flags { return s.disabled }

// Tick runs one full arbitration pass: retire, fill, then tick every running
// goal.
func (s *Selector) Tick() {
	if !s.begin() {
		return
	}
	defer s.end()

	for _, e := range s.entries {
		if !e.running {
			continue
		}
		s.verifyClaim(e)
		if !e.running {
			continue
		}
		if e.claimed.Intersects(s.disabled) {
			s.stopEntry(e, ReasonDisabled)
			continue
		}
		if !s.ask(e, "canContinue", e.goal.CanContinue) {
			s.stopEntry(e, ReasonRetired)
		}
	}

	for _, e := range s.entries {
		if e.running || e.faulted {
			continue
		}
		flags, ok := s.flagsOf(e)
		if !ok || flags.Intersects(s.disabled) {
			continue
		}
		if !s.replaceable(e, flags) {
			continue
		}
		if !s.ask(e, "canStart", e.goal.CanStart) {
			continue
		}
		for _, f := range flags.Slice() {
			if holder := s.locked[f]; holder != nil && holder != e {
				s.stopEntry(holder, ReasonPreempted)
			}
		}
		s.startEntry(e, flags)
	}

	s.tickRunning(true)
}

// TickRunningGoals ticks running goals without arbitration. With force unset
// only goals requiring every-tick updates are ticked; hosts call it this way
// on the ticks between full passes.
func (s *Selector) TickRunningGoals(force bool) {
	if !s.begin() {
		return
	}
	defer s.end()
	s.tickRunning(force)
}

// StopAll stops every running goal once. Hosts call it when the entity dies
// or is discarded; registrations are kept.
func (s *Selector) StopAll() {
	if s.busy {
		s.pending = append(s.pending, pendingOp{kind: opStopAll})
		return
	}
	s.busy = true
	defer s.end()
	s.stopAll(ReasonHalted)
}

// IsRunning reports whether g is currently active.
func (s *Selector) IsRunning(g Goal) bool {
	for _, e := range s.entries {
		if e.goal == g {
			return e.running
		}
	}
	return false
}

// Faulted reports whether g was quarantined after panicking.
func (s *Selector) Faulted(g Goal) bool {
	for _, e := range s.entries {
		if e.goal == g {
			return e.faulted
		}
	}
	return false
}

// EachRunning visits running goals in precedence order until fn returns false.
func (s *Selector) EachRunning(fn func(priority int, g Goal) bool) {
	for _, e := range s.entries {
		if !e.running {
			continue
		}
		if !fn(e.priority, e.goal) {
			return
		}
	}
}

// RunningGoals returns the running goals in precedence order.
func (s *Selector) RunningGoals() []Goal {
	var out []Goal
	s.EachRunning(func(_ int, g Goal) bool {
		out = append(out, g)
		return true
	})
	return out
}

// EntryInfo describes one registration for debug tooling.
type EntryInfo struct {
	Priority int
	Name     string
	Goal     Goal
	Flags    Flags
	Running  bool
	Faulted  bool
}

// Entries lists every registration in precedence order. Running entries
// report their activation snapshot.
func (s *Selector) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(s.entries))
	for _, e := range s.entries {
		info := EntryInfo{
			Priority: e.priority,
			Name:     Name(e.goal),
			Goal:     e.goal,
			Running:  e.running,
			Faulted:  e.faulted,
		}
		if e.running {
			info.Flags = e.claimed
		} else if !e.faulted {
			info.Flags = peekFlags(e.goal)
		}
		out = append(out, info)
	}
	return out
}

func (s *Selector) Len() int { return len(s.entries) }

func (s *Selector) begin() bool {
	if s.busy {
		s.logf("reentrant pass ignored")
		return false
	}
	s.busy = true
	return true
}

// end applies buffered registration changes in request order. Changes
// requested while applying (from Stop callbacks) are appended and applied in
// the same loop.
func (s *Selector) end() {
	for i := 0; i < len(s.pending); i++ {
		op := s.pending[i]
		switch op.kind {
		case opAdd:
			if !s.has(op.goal) {
				s.insert(op.priority, op.goal)
			}
		case opRemove:
			g := op.goal
			s.removeWhere(func(_ int, cand Goal) bool { return cand == g })
		case opRemoveIf:
			s.removeWhere(op.pred)
		case opStopAll:
			s.stopAll(ReasonHalted)
		}
	}
	s.pending = s.pending[:0]
	s.busy = false
}

func (s *Selector) tickRunning(force bool) {
	for _, e := range s.entries {
		if !e.running {
			continue
		}
		if !force && !s.ask(e, "requiresUpdateEveryTick", e.goal.RequiresUpdateEveryTick) {
			continue
		}
		// A fault during an earlier tick may have stopped this entry.
		if e.running {
			s.call(e, "tick", e.goal.Tick)
		}
	}
}

// replaceable reports whether every holder of a flag in flags may give way
// to e.
func (s *Selector) replaceable(e *entry, flags Flags) bool {
	for _, f := range flags.Slice() {
		holder := s.locked[f]
		if holder == nil || holder == e {
			continue
		}
		if holder.priority <= e.priority {
			return false
		}
		if !s.ask(holder, "isInterruptible", holder.goal.IsInterruptible) {
			return false
		}
	}
	return true
}

func (s *Selector) startEntry(e *entry, flags Flags) {
	e.running = true
	e.claimed = flags
	e.warned = false
	for _, f := range flags.Slice() {
		s.locked[f] = e
	}
	if s.call(e, "start", e.goal.Start) {
		s.notify(e, Started, "")
	}
}

// stopEntry releases e's flags and calls Stop. The entry is marked stopped
// before the callback so a panic inside Stop can't trigger a second Stop.
func (s *Selector) stopEntry(e *entry, reason Reason) {
	if !e.running {
		return
	}
	e.running = false
	s.release(e)
	if s.call(e, "stop", e.goal.Stop) {
		s.notify(e, Stopped, reason)
	}
}

func (s *Selector) stopAll(reason Reason) {
	for _, e := range s.entries {
		s.stopEntry(e, reason)
	}
}

func (s *Selector) release(e *entry) {
	for f := range s.locked {
		if s.locked[f] == e {
			s.locked[f] = nil
		}
	}
}

// peekFlags reads g's flags for introspection. A panic yields no flags and
// leaves the goal alone; only passes quarantine.
func peekFlags(g Goal) (flags Flags) {
	defer func() {
		if recover() != nil {
			flags = 0
		}
	}()
	return g.Flags()
}

func (s *Selector) flagsOf(e *entry) (flags Flags, ok bool) {
	ok = s.call(e, "flags", func() { flags = e.goal.Flags() })
	return flags, ok
}

// verifyClaim compares a running goal's current flags with its snapshot.
// The snapshot stays authoritative either way.
func (s *Selector) verifyClaim(e *entry) {
	if !s.checkFlags || e.warned {
		return
	}
	cur, ok := s.flagsOf(e)
	if !ok || !e.running {
		return
	}
	if cur != e.claimed {
		e.warned = true
		s.logf("%s changed flags while running: claimed=%s now=%s", Name(e.goal), e.claimed, cur)
	}
}

func (s *Selector) insert(priority int, g Goal) {
	e := &entry{priority: priority, goal: g}
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].priority > priority
	})
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

func (s *Selector) removeWhere(pred func(priority int, g Goal) bool) {
	kept := s.entries[:0]
	var removed []*entry
	for _, e := range s.entries {
		if pred(e.priority, e.goal) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
	for _, e := range removed {
		s.stopEntry(e, ReasonRemoved)
	}
}

func (s *Selector) has(g Goal) bool {
	for _, e := range s.entries {
		if e.goal == g {
			return true
		}
	}
	return false
}

func (s *Selector) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.Printf("[%s] "+format, append([]any{s.name}, args...)...)
}

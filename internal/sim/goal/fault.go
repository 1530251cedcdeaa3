package goal

import (
	"fmt"
	"runtime/debug"
)

// FaultError wraps a panic recovered from a goal callback.
type FaultError struct {
	Goal  string
	Op    string
	Value any
	Stack []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("goal %s: panic in %s: %v", e.Goal, e.Op, e.Value)
}

// Unwrap exposes a panicked error value.
func (e *FaultError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// call runs fn at the per-goal boundary. A panic quarantines the entry and
// reports false.
func (s *Selector) call(e *entry, op string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			s.fault(e, op, r)
		}
	}()
	fn()
	return true
}

// ask is call for predicates; a panicking predicate answers false.
func (s *Selector) ask(e *entry, op string, fn func() bool) bool {
	var v bool
	if !s.call(e, op, func() { v = fn() }) {
		return false
	}
	return v
}

// fault quarantines e so it is never considered again, and makes a
// best-effort Stop if it was running.
func (s *Selector) fault(e *entry, op string, r any) {
	err := &FaultError{Goal: Name(e.goal), Op: op, Value: r, Stack: debug.Stack()}
	s.logf("%v\n%s", err, err.Stack)
	// A panic from the best-effort Stop below is logged but not reported
	// as a second fault.
	if e.faulted {
		return
	}
	e.faulted = true

	if e.running {
		e.running = false
		s.release(e)
		s.call(e, "stop", e.goal.Stop)
	}
	if s.observer != nil {
		s.observer.GoalTransition(Transition{
			Selector: s.name,
			Kind:     Faulted,
			Priority: e.priority,
			Name:     err.Goal,
			Goal:     e.goal,
			Flags:    e.claimed,
			Err:      err,
		})
	}
}

package goal

import (
	"fmt"
	"strings"
)

// Goal is a unit of entity behavior arbitrated by a Selector.
//
// CanStart is only called while the goal is idle and the selector is willing
// to activate it, so it may cache a candidate (a target, a destination) for
// Start to use. Whatever it caches must be cheap to discard: the selector can
// still reject the goal afterwards.
//
// CanContinue is only called while running. Start and Stop are paired: every
// Start is followed by exactly one Stop before the next Start. Stop must leave
// the entity in a neutral state for whatever runs next (halt navigation, clear
// a target). All callbacks run on the simulation goroutine and must not block.
//
// Goals are compared by identity, so implementations should be pointer types.
type Goal interface {
	CanStart() bool
	CanContinue() bool
	Start()
	Tick()
	Stop()

	// Flags reports the resources the goal claims while running. The set is
	// snapshotted at activation and must not change until Stop.
	Flags() Flags
	// IsInterruptible reports whether a higher precedence goal that needs one
	// of the same flags may stop this goal.
	IsInterruptible() bool
	// RequiresUpdateEveryTick forces Tick on reduced-cadence passes too.
	RequiresUpdateEveryTick() bool
}

// Namer is implemented by goals that want a stable name in traces and debug
// frames. Other goals are named after their type.
type Namer interface {
	Name() string
}

// Name returns a display name for g.
func Name(g Goal) string {
	if g == nil {
		return ""
	}
	if n, ok := g.(Namer); ok {
		if s := n.Name(); s != "" {
			return s
		}
	}
	s := fmt.Sprintf("%T", g)
	s = strings.TrimPrefix(s, "*")
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// Base holds the flag set and the default answers of the Goal contract.
// Embed it and override what differs.
type Base struct {
	flags Flags
}

// SetFlags replaces the claimed flags. Call it before registration.
func (b *Base) SetFlags(fs ...Flag) { b.flags = NewFlags(fs...) }

func (b *Base) Flags() Flags                  { return b.flags }
func (b *Base) IsInterruptible() bool         { return true }
func (b *Base) RequiresUpdateEveryTick() bool { return false }
func (b *Base) Start()                        {}
func (b *Base) Tick()                         {}
func (b *Base) Stop()                         {}

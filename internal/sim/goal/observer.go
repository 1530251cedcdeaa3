package goal

// TransitionKind is the lifecycle change a Transition reports.
type TransitionKind uint8

const (
	Started TransitionKind = iota + 1
	Stopped
	Faulted
)

func (k TransitionKind) String() string {
	switch k {
	case Started:
		return "START"
	case Stopped:
		return "STOP"
	case Faulted:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// Reason explains why a goal stopped.
type Reason string

const (
	ReasonRetired   Reason = "RETIRED"   // CanContinue returned false
	ReasonPreempted Reason = "PREEMPTED" // a higher precedence goal took a flag
	ReasonDisabled  Reason = "DISABLED"  // one of its flags was disabled
	ReasonRemoved   Reason = "REMOVED"
	ReasonHalted    Reason = "HALTED" // StopAll
)

// Transition is one lifecycle change observed by a selector.
type Transition struct {
	Selector string
	Kind     TransitionKind
	Reason   Reason
	Priority int
	Name     string
	Goal     Goal
	Flags    Flags
	Err      error
}

// Observer receives transitions synchronously, on the simulation goroutine.
type Observer interface {
	GoalTransition(t Transition)
}

type ObserverFunc func(t Transition)

func (f ObserverFunc) GoalTransition(t Transition) { f(t) }

func (s *Selector) notify(e *entry, kind TransitionKind, reason Reason) {
	if s.observer == nil {
		return
	}
	s.observer.GoalTransition(Transition{
		Selector: s.name,
		Kind:     kind,
		Reason:   reason,
		Priority: e.priority,
		Name:     Name(e.goal),
		Goal:     e.goal,
		Flags:    e.claimed,
	})
}

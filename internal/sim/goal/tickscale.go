package goal

// TickScale converts goal timer lengths into effective tick counts.
//
// EvalInterval is how often (in simulation ticks) a host runs a full selector
// pass; goals that don't require every-tick updates are only ticked on those
// passes, so their timers are divided down by ReducedDelay. DelayPermille is
// a global knob stretching (>1000) or shrinking (<1000) every timer.
type TickScale struct {
	EvalInterval  int `yaml:"eval_interval" json:"eval_interval"`
	DelayPermille int `yaml:"delay_permille" json:"delay_permille"`
}

func DefaultTickScale() TickScale {
	return TickScale{EvalInterval: 2, DelayPermille: 1000}
}

func (s TickScale) Interval() int {
	if s.EvalInterval <= 0 {
		return 1
	}
	return s.EvalInterval
}

func (s TickScale) permille() int {
	if s.DelayPermille <= 0 {
		return 1000
	}
	return s.DelayPermille
}

// AdjustedDelay scales base by DelayPermille, rounding up.
func (s TickScale) AdjustedDelay(base int) int {
	if base <= 0 {
		return 0
	}
	return ceilDiv(base*s.permille(), 1000)
}

// ReducedDelay divides base by the evaluation interval, rounding up. Use it
// for random-chance checks ("1 in N ticks") made from CanStart.
func (s TickScale) ReducedDelay(base int) int {
	if base <= 0 {
		return 0
	}
	return ceilDiv(base, s.Interval())
}

// AdjustedTickDelay is the timer length g should count down from in Tick.
func AdjustedTickDelay(g Goal, s TickScale, base int) int {
	d := s.AdjustedDelay(base)
	if g != nil && g.RequiresUpdateEveryTick() {
		return d
	}
	return s.ReducedDelay(d)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

package goal

import "testing"

type cadenceGoal struct {
	Base
	everyTick bool
}

func (g *cadenceGoal) CanStart() bool                { return true }
func (g *cadenceGoal) CanContinue() bool             { return true }
func (g *cadenceGoal) RequiresUpdateEveryTick() bool { return g.everyTick }

func TestTickScale(t *testing.T) {
	tests := []struct {
		name     string
		scale    TickScale
		base     int
		adjusted int
		reduced  int
	}{
		{"default", DefaultTickScale(), 40, 40, 20},
		{"odd base rounds up", DefaultTickScale(), 5, 5, 3},
		{"stretched", TickScale{EvalInterval: 2, DelayPermille: 1500}, 40, 60, 20},
		{"shrunk rounds up", TickScale{EvalInterval: 4, DelayPermille: 333}, 10, 4, 3},
		{"zero value", TickScale{}, 7, 7, 7},
		{"non-positive base", DefaultTickScale(), 0, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.scale.AdjustedDelay(tc.base); got != tc.adjusted {
				t.Fatalf("adjusted: got %d want %d", got, tc.adjusted)
			}
			if got := tc.scale.ReducedDelay(tc.base); got != tc.reduced {
				t.Fatalf("reduced: got %d want %d", got, tc.reduced)
			}
		})
	}
}

func TestAdjustedTickDelay(t *testing.T) {
	s := TickScale{EvalInterval: 2, DelayPermille: 1000}
	if got := AdjustedTickDelay(&cadenceGoal{everyTick: true}, s, 40); got != 40 {
		t.Fatalf("every-tick goal: %d", got)
	}
	if got := AdjustedTickDelay(&cadenceGoal{}, s, 40); got != 20 {
		t.Fatalf("reduced goal: %d", got)
	}
}

func TestName(t *testing.T) {
	if got := Name(&cadenceGoal{}); got != "cadenceGoal" {
		t.Fatalf("type name: %q", got)
	}
	if Name(nil) != "" {
		t.Fatalf("nil name")
	}
}

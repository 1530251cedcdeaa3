package goals

import (
	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
	"mobcraft.ai/internal/sim/terrain"
)

// LookAtNearby turns to face the closest mob (or the current target).
type LookAtNearby struct {
	goal.Base
	mob         *mob.Mob
	distance    int
	probability float64
	keep        func(*mob.Mob) bool

	lookAt   *mob.Mob
	lookTime int
}

// NewLookAtNearby watches mobs of kinds (any kind when empty) within distance,
// starting with the given chance per evaluation.
func NewLookAtNearby(m *mob.Mob, distance int, probability float64, kinds ...string) *LookAtNearby {
	g := &LookAtNearby{mob: m, distance: distance, probability: probability}
	if len(kinds) > 0 {
		g.keep = kindIn(kinds)
	}
	g.SetFlags(goal.Look)
	return g
}

func (g *LookAtNearby) Name() string { return "look_at_nearby" }

func (g *LookAtNearby) CanStart() bool {
	if g.mob.Rand().Float64() >= g.probability {
		return false
	}
	if t := g.mob.Target(); t != nil {
		g.lookAt = t
		return true
	}
	g.lookAt = nearest(g.mob, g.distance, g.keep)
	return g.lookAt != nil
}

func (g *LookAtNearby) CanContinue() bool {
	if g.lookAt == nil || !g.lookAt.Alive() {
		return false
	}
	return within(g.mob.Pos, g.lookAt.Pos, g.distance) && g.lookTime > 0
}

func (g *LookAtNearby) Start() {
	g.lookTime = delay(g, g.mob, 40+g.mob.Rand().Intn(40))
}

func (g *LookAtNearby) Stop() {
	g.lookAt = nil
	g.mob.ClearLook()
}

func (g *LookAtNearby) Tick() {
	if g.lookAt != nil && g.lookAt.Alive() {
		g.mob.LookAt(g.lookAt.Pos)
	}
	g.lookTime--
}

// RandomLookAround idly turns toward a random direction for a second or two.
type RandomLookAround struct {
	goal.Base
	mob      *mob.Mob
	dir      terrain.Vec3i
	lookTime int
}

func NewRandomLookAround(m *mob.Mob) *RandomLookAround {
	g := &RandomLookAround{mob: m}
	g.SetFlags(goal.Move, goal.Look)
	return g
}

func (g *RandomLookAround) Name() string                  { return "random_look_around" }
func (g *RandomLookAround) CanStart() bool                { return g.mob.Rand().Float64() < 0.02 }
func (g *RandomLookAround) CanContinue() bool             { return g.lookTime >= 0 }
func (g *RandomLookAround) RequiresUpdateEveryTick() bool { return true }

func (g *RandomLookAround) Start() {
	r := g.mob.Rand()
	g.dir = terrain.Vec3i{X: r.Intn(9) - 4, Z: r.Intn(9) - 4}
	g.lookTime = 20 + r.Intn(20)
}

func (g *RandomLookAround) Stop() { g.mob.ClearLook() }

func (g *RandomLookAround) Tick() {
	g.lookTime--
	g.mob.LookAt(g.mob.Pos.Add(g.dir))
}

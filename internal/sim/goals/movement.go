package goals

import (
	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
	"mobcraft.ai/internal/sim/terrain"
)

// Float keeps the mob bobbing while it is in water.
type Float struct {
	goal.Base
	mob *mob.Mob
}

func NewFloat(m *mob.Mob) *Float {
	g := &Float{mob: m}
	g.SetFlags(goal.Jump)
	return g
}

func (g *Float) Name() string                  { return "float" }
func (g *Float) CanStart() bool                { return g.mob.InWater() }
func (g *Float) CanContinue() bool             { return g.mob.InWater() }
func (g *Float) RequiresUpdateEveryTick() bool { return true }

func (g *Float) Tick() {
	if g.mob.Rand().Float64() < 0.8 {
		g.mob.Jump()
	}
}

// Panic runs to a random nearby tile after being hurt.
type Panic struct {
	goal.Base
	mob   *mob.Mob
	speed float64
	dest  terrain.Vec3i
}

func NewPanic(m *mob.Mob, speed float64) *Panic {
	g := &Panic{mob: m, speed: speed}
	g.SetFlags(goal.Move)
	return g
}

func (g *Panic) Name() string { return "panic" }

func (g *Panic) CanStart() bool {
	by := g.mob.LastHurtBy()
	if by == nil {
		return false
	}
	p, ok := randomPosAway(g.mob, 5, by.Pos)
	if !ok {
		p, ok = randomPos(g.mob, 5)
	}
	if !ok {
		return false
	}
	g.dest = p
	return true
}

func (g *Panic) CanContinue() bool { return !g.mob.Nav().Done() }

func (g *Panic) Start() { g.mob.Nav().MoveTo(g.dest, g.speed) }

func (g *Panic) Stop() { g.mob.Nav().Stop() }

// AvoidEntity flees from nearby mobs of the given kinds.
type AvoidEntity struct {
	goal.Base
	mob      *mob.Mob
	kinds    func(*mob.Mob) bool
	distance int
	speed    float64

	threat *mob.Mob
	dest   terrain.Vec3i
}

func NewAvoidEntity(m *mob.Mob, distance int, speed float64, kinds ...string) *AvoidEntity {
	g := &AvoidEntity{mob: m, kinds: kindIn(kinds), distance: distance, speed: speed}
	g.SetFlags(goal.Move)
	return g
}

func (g *AvoidEntity) Name() string { return "avoid_entity" }

func (g *AvoidEntity) CanStart() bool {
	threat := nearest(g.mob, g.distance, g.kinds)
	if threat == nil {
		return false
	}
	p, ok := randomPosAway(g.mob, g.distance, threat.Pos)
	if !ok {
		return false
	}
	g.threat, g.dest = threat, p
	return true
}

func (g *AvoidEntity) CanContinue() bool { return !g.mob.Nav().Done() }

func (g *AvoidEntity) Start() { g.mob.Nav().MoveTo(g.dest, g.speed) }

func (g *AvoidEntity) Stop() {
	g.threat = nil
	g.mob.Nav().Stop()
}

// RandomStroll wanders to a random tile, on average once per interval ticks.
type RandomStroll struct {
	goal.Base
	mob      *mob.Mob
	speed    float64
	interval int
	dest     terrain.Vec3i
}

func NewRandomStroll(m *mob.Mob, speed float64, interval int) *RandomStroll {
	if interval <= 0 {
		interval = 120
	}
	g := &RandomStroll{mob: m, speed: speed, interval: interval}
	g.SetFlags(goal.Move)
	return g
}

func (g *RandomStroll) Name() string { return "random_stroll" }

func (g *RandomStroll) CanStart() bool {
	if g.mob.RiderControlled {
		return false
	}
	if n := g.mob.Scale().ReducedDelay(g.interval); n > 1 && g.mob.Rand().Intn(n) != 0 {
		return false
	}
	p, ok := randomPos(g.mob, 10)
	if !ok {
		return false
	}
	g.dest = p
	return true
}

func (g *RandomStroll) CanContinue() bool {
	return !g.mob.Nav().Done() && !g.mob.RiderControlled
}

func (g *RandomStroll) Start() { g.mob.Nav().MoveTo(g.dest, g.speed) }

func (g *RandomStroll) Stop() { g.mob.Nav().Stop() }

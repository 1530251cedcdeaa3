package goals

import (
	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
)

const (
	attackReach  = 1
	followRange  = 16
	attackPeriod = 20
)

// MeleeAttack chases the current target and hits it when adjacent.
type MeleeAttack struct {
	goal.Base
	mob   *mob.Mob
	speed float64

	cooldown  int
	repath    int
	lastKnown *mob.Mob
}

func NewMeleeAttack(m *mob.Mob, speed float64) *MeleeAttack {
	g := &MeleeAttack{mob: m, speed: speed}
	g.SetFlags(goal.Move, goal.Look)
	return g
}

func (g *MeleeAttack) Name() string                  { return "melee_attack" }
func (g *MeleeAttack) RequiresUpdateEveryTick() bool { return true }

func (g *MeleeAttack) CanStart() bool {
	t := g.mob.Target()
	if t == nil {
		return false
	}
	if within(g.mob.Pos, t.Pos, attackReach) {
		return true
	}
	return within(g.mob.Pos, t.Pos, followRange)
}

func (g *MeleeAttack) CanContinue() bool {
	t := g.mob.Target()
	return t != nil && within(g.mob.Pos, t.Pos, followRange)
}

func (g *MeleeAttack) Start() {
	g.lastKnown = g.mob.Target()
	g.cooldown = 0
	g.repath = 0
	if g.lastKnown != nil {
		g.mob.Nav().MoveTo(g.lastKnown.Pos, g.speed)
	}
}

func (g *MeleeAttack) Stop() {
	g.lastKnown = nil
	g.mob.Nav().Stop()
}

func (g *MeleeAttack) Tick() {
	t := g.mob.Target()
	if t == nil {
		return
	}
	g.mob.LookAt(t.Pos)
	if g.cooldown > 0 {
		g.cooldown--
	}
	if g.repath > 0 {
		g.repath--
	}

	if within(g.mob.Pos, t.Pos, attackReach) {
		g.mob.Nav().Stop()
		if g.cooldown == 0 {
			if v := g.mob.View(); v != nil {
				v.Hurt(t, g.mob, g.mob.Damage)
			}
			g.cooldown = delay(g, g.mob, attackPeriod)
		}
		return
	}
	if g.repath == 0 || t != g.lastKnown {
		g.lastKnown = t
		g.mob.Nav().MoveTo(t.Pos, g.speed)
		g.repath = delay(g, g.mob, 4+g.mob.Rand().Intn(7))
	}
}

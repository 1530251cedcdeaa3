package goals

import (
	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
)

// targetBase is shared by target-selector goals: they claim TARGET only and
// hand the chosen mob to the behavior goals through Mob.SetTarget.
type targetBase struct {
	goal.Base
	mob         *mob.Mob
	followRange int
	chosen      *mob.Mob
}

func newTargetBase(m *mob.Mob) targetBase {
	b := targetBase{mob: m, followRange: followRange}
	b.SetFlags(goal.Target)
	return b
}

func (b *targetBase) CanContinue() bool {
	t := b.mob.Target()
	if t == nil || t != b.chosen {
		return false
	}
	return within(b.mob.Pos, t.Pos, b.followRange)
}

func (b *targetBase) Start() { b.mob.SetTarget(b.chosen) }

func (b *targetBase) Stop() {
	if t := b.mob.Target(); t == nil || t == b.chosen {
		b.mob.SetTarget(nil)
	}
	b.chosen = nil
}

// HurtByTarget targets whoever last hurt the mob, optionally rallying idle
// mobs of the same kind nearby.
type HurtByTarget struct {
	targetBase
	alertOthers bool
	seenHits    uint64
}

func NewHurtByTarget(m *mob.Mob, alertOthers bool) *HurtByTarget {
	return &HurtByTarget{targetBase: newTargetBase(m), alertOthers: alertOthers}
}

func (g *HurtByTarget) Name() string { return "hurt_by_target" }

func (g *HurtByTarget) CanStart() bool {
	if g.mob.HurtCount() == g.seenHits {
		return false
	}
	by := g.mob.LastHurtBy()
	if by == nil || by.Kind == g.mob.Kind {
		return false
	}
	g.chosen = by
	return true
}

func (g *HurtByTarget) Start() {
	g.seenHits = g.mob.HurtCount()
	g.targetBase.Start()
	if !g.alertOthers {
		return
	}
	v := g.mob.View()
	if v == nil {
		return
	}
	attacker := g.chosen
	v.Nearby(g.mob.Pos, g.followRange/2, func(o *mob.Mob) bool {
		if o != g.mob && o.Kind == g.mob.Kind && o.Target() == nil {
			o.SetTarget(attacker)
		}
		return true
	})
}

// NearestAttackableTarget picks the closest mob of the given kinds, checking
// on average once per randomInterval evaluations.
type NearestAttackableTarget struct {
	targetBase
	kinds          func(*mob.Mob) bool
	randomInterval int
}

func NewNearestAttackableTarget(m *mob.Mob, randomInterval int, kinds ...string) *NearestAttackableTarget {
	return &NearestAttackableTarget{targetBase: newTargetBase(m), kinds: kindIn(kinds), randomInterval: randomInterval}
}

func (g *NearestAttackableTarget) Name() string { return "nearest_attackable_target" }

func (g *NearestAttackableTarget) CanStart() bool {
	if n := g.mob.Scale().ReducedDelay(g.randomInterval); n > 1 && g.mob.Rand().Intn(n) != 0 {
		return false
	}
	g.chosen = nearest(g.mob, g.followRange, g.kinds)
	return g.chosen != nil
}

package goals

import (
	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
	"mobcraft.ai/internal/sim/terrain"
)

// EatGrass stands still for a couple of seconds and turns the grass tile
// under the mob into dirt. A higher precedence MOVE goal (panic) interrupts
// the meal.
type EatGrass struct {
	goal.Base
	mob    *mob.Mob
	chance int
	timer  int
}

// NewEatGrass starts on average once per chance evaluations on grass.
func NewEatGrass(m *mob.Mob, chance int) *EatGrass {
	if chance <= 0 {
		chance = 1000
	}
	g := &EatGrass{mob: m, chance: chance}
	g.SetFlags(goal.Move, goal.Look, goal.Jump)
	return g
}

func (g *EatGrass) Name() string { return "eat_grass" }

func (g *EatGrass) CanStart() bool {
	if g.chance > 1 && g.mob.Rand().Intn(g.chance) != 0 {
		return false
	}
	v := g.mob.View()
	return v != nil && v.TileAt(g.mob.Pos) == terrain.Grass
}

func (g *EatGrass) CanContinue() bool { return g.timer > 0 }

func (g *EatGrass) Start() {
	g.timer = delay(g, g.mob, 40)
	g.mob.Nav().Stop()
}

func (g *EatGrass) Stop() { g.timer = 0 }

func (g *EatGrass) Tick() {
	if g.timer <= 0 {
		return
	}
	g.timer--
	if g.timer != delay(g, g.mob, 4) {
		return
	}
	v := g.mob.View()
	if v != nil && v.TileAt(g.mob.Pos) == terrain.Grass {
		v.SetTile(g.mob.Pos, terrain.Dirt)
		g.mob.Ate()
	}
}

// Remaining is the number of ticks left in the current meal.
func (g *EatGrass) Remaining() int { return g.timer }

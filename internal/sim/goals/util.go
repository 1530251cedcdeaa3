// Package goals holds the behaviors mob archetypes are assembled from.
package goals

import (
	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
	"mobcraft.ai/internal/sim/terrain"
)

const posAttempts = 10

// randomPos picks a walkable tile within horizontal radius of the mob.
func randomPos(m *mob.Mob, radius int) (terrain.Vec3i, bool) {
	return randomPosToward(m, radius, terrain.Vec3i{}, false)
}

// randomPosAway picks a walkable tile within radius that is farther from
// threat than the mob currently is.
func randomPosAway(m *mob.Mob, radius int, threat terrain.Vec3i) (terrain.Vec3i, bool) {
	return randomPosToward(m, radius, threat, true)
}

func randomPosToward(m *mob.Mob, radius int, threat terrain.Vec3i, away bool) (terrain.Vec3i, bool) {
	if radius <= 0 {
		return terrain.Vec3i{}, false
	}
	v := m.View()
	r := m.Rand()
	cur := terrain.DistSq(m.Pos, threat)
	for i := 0; i < posAttempts; i++ {
		p := terrain.Vec3i{
			X: m.Pos.X + r.Intn(2*radius+1) - radius,
			Z: m.Pos.Z + r.Intn(2*radius+1) - radius,
		}
		if p == m.Pos {
			continue
		}
		if v != nil && (!v.InBounds(p) || v.Solid(p)) {
			continue
		}
		if away && terrain.DistSq(p, threat) <= cur {
			continue
		}
		return p, true
	}
	return terrain.Vec3i{}, false
}

// nearest returns the closest living mob within radius accepted by keep.
func nearest(m *mob.Mob, radius int, keep func(*mob.Mob) bool) *mob.Mob {
	v := m.View()
	if v == nil {
		return nil
	}
	var best *mob.Mob
	bestD := 0
	v.Nearby(m.Pos, radius, func(o *mob.Mob) bool {
		if o == m || !o.Alive() || (keep != nil && !keep(o)) {
			return true
		}
		if d := terrain.DistSq(m.Pos, o.Pos); best == nil || d < bestD {
			best, bestD = o, d
		}
		return true
	})
	return best
}

func kindIn(kinds []string) func(*mob.Mob) bool {
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	return func(o *mob.Mob) bool { return set[o.Kind] }
}

func within(a, b terrain.Vec3i, r int) bool {
	return terrain.DistSq(a, b) <= r*r
}

// delay is the goal-aware timer length for base ticks.
func delay(g goal.Goal, m *mob.Mob, base int) int {
	return goal.AdjustedTickDelay(g, m.Scale(), base)
}

// Package nav moves a mob across the tile grid toward a requested tile.
package nav

import "mobcraft.ai/internal/sim/terrain"

// Grid is the passability view the navigator walks on.
type Grid interface {
	InBounds(p terrain.Vec3i) bool
	Solid(p terrain.Vec3i) bool
}

const (
	defaultBaseSpeed = 0.25 // tiles per tick at speed modifier 1
	detourDepth      = 8
	maxStall         = 20
)

// Navigator is a single-destination mover. Goals drive it through MoveTo and
// Stop; the world calls Advance once per tick to apply movement.
type Navigator struct {
	grid      Grid
	baseSpeed float64

	active   bool
	target   terrain.Vec3i
	speed    float64
	progress float64
	stall    int
	detour   []terrain.Vec3i
}

func New(grid Grid, baseSpeed float64) *Navigator {
	if baseSpeed <= 0 {
		baseSpeed = defaultBaseSpeed
	}
	return &Navigator{grid: grid, baseSpeed: baseSpeed}
}

// MoveTo starts walking toward target at baseSpeed*speed. It reports false
// (and leaves any current path untouched) when target is unreachable.
func (n *Navigator) MoveTo(target terrain.Vec3i, speed float64) bool {
	target.Y = 0
	if n.grid != nil && (!n.grid.InBounds(target) || n.grid.Solid(target)) {
		return false
	}
	if speed <= 0 {
		speed = 1
	}
	n.active = true
	n.target = target
	n.speed = n.baseSpeed * speed
	n.stall = 0
	n.detour = nil
	return true
}

func (n *Navigator) Stop() {
	n.active = false
	n.progress = 0
	n.stall = 0
	n.detour = nil
}

func (n *Navigator) InProgress() bool { return n.active }

func (n *Navigator) Done() bool { return !n.active }

// Target returns the current destination, if any.
func (n *Navigator) Target() (terrain.Vec3i, bool) { return n.target, n.active }

// Advance returns the position after this tick's movement from from.
func (n *Navigator) Advance(from terrain.Vec3i) terrain.Vec3i {
	if !n.active {
		return from
	}
	n.progress += n.speed
	for n.progress >= 1 && n.active {
		n.progress--
		if from == n.target {
			break
		}
		next, ok := n.step(from)
		if !ok {
			n.stall++
			if n.stall > maxStall {
				n.Stop()
			}
			break
		}
		n.stall = 0
		from = next
	}
	if from == n.target {
		n.Stop()
	}
	return from
}

func (n *Navigator) step(from terrain.Vec3i) (terrain.Vec3i, bool) {
	if len(n.detour) > 0 {
		next := n.detour[0]
		n.detour = n.detour[1:]
		if n.passable(next) {
			return next, true
		}
		n.detour = nil
	}
	dx := sign(n.target.X - from.X)
	dz := sign(n.target.Z - from.Z)
	// Greedy step along the longer axis first.
	cands := []terrain.Vec3i{{X: dx}, {Z: dz}}
	if abs(n.target.Z-from.Z) > abs(n.target.X-from.X) {
		cands[0], cands[1] = cands[1], cands[0]
	}
	for _, c := range cands {
		if c == (terrain.Vec3i{}) {
			continue
		}
		np := from.Add(c)
		if n.passable(np) {
			return np, true
		}
	}
	if n.grid == nil {
		return terrain.Vec3i{}, false
	}
	path, ok := detourPath(from, n.target, detourDepth, n.grid)
	if !ok {
		return terrain.Vec3i{}, false
	}
	n.detour = path[1:]
	return path[0], true
}

func (n *Navigator) passable(p terrain.Vec3i) bool {
	if n.grid == nil {
		return true
	}
	return n.grid.InBounds(p) && !n.grid.Solid(p)
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

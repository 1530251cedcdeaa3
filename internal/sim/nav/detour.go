package nav

import "mobcraft.ai/internal/sim/terrain"

func distXZ(a, b terrain.Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dz
}

// fixed neighbor order keeps paths deterministic
var dirs = []terrain.Vec3i{{X: 1}, {X: -1}, {Z: 1}, {Z: -1}}

// detourPath runs a bounded BFS from start and returns the walk (excluding
// start) to the reachable tile closest to target, provided it is strictly
// closer than start. Ties prefer the shallower walk, then the lower X/Z of
// the first step.
func detourPath(start, target terrain.Vec3i, maxDepth int, g Grid) ([]terrain.Vec3i, bool) {
	if maxDepth <= 0 {
		return nil, false
	}
	start.Y = 0
	target.Y = 0
	startDist := distXZ(start, target)

	type qItem struct {
		p      terrain.Vec3i
		depth  int
		first  terrain.Vec3i
		parent int
	}

	visited := make(map[terrain.Vec3i]bool, 256)
	visited[start] = true
	queue := make([]qItem, 0, 256)
	for _, d := range dirs {
		np := start.Add(d)
		if !g.InBounds(np) || g.Solid(np) {
			continue
		}
		visited[np] = true
		queue = append(queue, qItem{p: np, depth: 1, first: np, parent: -1})
	}

	var (
		found     bool
		bestDist  = startDist
		bestDepth int
		bestFirst terrain.Vec3i
		bestIdx   = -1
	)
	better := func(dist, depth int, first terrain.Vec3i) bool {
		if !found {
			return true
		}
		if dist != bestDist {
			return dist < bestDist
		}
		if depth != bestDepth {
			return depth < bestDepth
		}
		if first.X != bestFirst.X {
			return first.X < bestFirst.X
		}
		return first.Z < bestFirst.Z
	}

	for head := 0; head < len(queue); head++ {
		it := queue[head]
		if d := distXZ(it.p, target); d < startDist && better(d, it.depth, it.first) {
			found = true
			bestDist = d
			bestDepth = it.depth
			bestFirst = it.first
			bestIdx = head
		}
		if it.depth >= maxDepth {
			continue
		}
		for _, d := range dirs {
			np := it.p.Add(d)
			if visited[np] || !g.InBounds(np) || g.Solid(np) {
				continue
			}
			visited[np] = true
			queue = append(queue, qItem{p: np, depth: it.depth + 1, first: it.first, parent: head})
		}
	}
	if !found {
		return nil, false
	}
	path := make([]terrain.Vec3i, queue[bestIdx].depth)
	for i := bestIdx; i >= 0; i = queue[i].parent {
		path[queue[i].depth-1] = queue[i].p
	}
	return path, true
}

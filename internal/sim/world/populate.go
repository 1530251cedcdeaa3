package world

import (
	"fmt"
	"math/rand"

	"mobcraft.ai/internal/sim/terrain"
)

// Placement asks for Count mobs of Kind scattered up to Spread tiles around
// Center.
type Placement struct {
	Kind   string
	Count  int
	Center terrain.Vec3i
	Spread int
}

// Populate spawns every placement in order. Scatter offsets come from the
// world seed, so a given seed and placement list always produce the same
// mobs in the same spots.
func (w *World) Populate(placements []Placement) error {
	r := rand.New(rand.NewSource(w.cfg.Seed))
	for _, p := range placements {
		for i := 0; i < p.Count; i++ {
			at := p.Center
			if p.Spread > 0 {
				at.X += r.Intn(2*p.Spread+1) - p.Spread
				at.Z += r.Intn(2*p.Spread+1) - p.Spread
			}
			if _, err := w.SpawnNear(p.Kind, at, 8); err != nil {
				return fmt.Errorf("populate %s #%d: %w", p.Kind, i+1, err)
			}
		}
	}
	return nil
}

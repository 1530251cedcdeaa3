package world

import (
	"log"

	"mobcraft.ai/internal/sim/goal"
)

type Config struct {
	ID              string
	TickRateHz      int
	Seed            int64
	BoundaryR       int
	BiomeRegionSize int

	// Scale sets how often mobs run a full selector pass and how goal
	// timers are stretched to match.
	Scale goal.TickScale

	// CheckFlags makes selectors report goals whose flags change while they
	// run. Debug only.
	CheckFlags bool

	Logger *log.Logger
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = "meadow"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.BoundaryR <= 0 {
		c.BoundaryR = 64
	}
	if c.BiomeRegionSize <= 0 {
		c.BiomeRegionSize = 32
	}
	if c.Scale.EvalInterval <= 0 || c.Scale.DelayPermille <= 0 {
		def := goal.DefaultTickScale()
		if c.Scale.EvalInterval <= 0 {
			c.Scale.EvalInterval = def.EvalInterval
		}
		if c.Scale.DelayPermille <= 0 {
			c.Scale.DelayPermille = def.DelayPermille
		}
	}
}

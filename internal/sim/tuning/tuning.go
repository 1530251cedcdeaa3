// Package tuning loads the simulation knobs from YAML.
package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mobs"
)

var ErrInvalid = errors.New("invalid tuning")

type Tuning struct {
	WorldID         string `yaml:"world_id"`
	TickRateHz      int    `yaml:"tick_rate_hz"`
	Seed            int64  `yaml:"seed"`
	WorldBoundaryR  int    `yaml:"world_boundary_r"`
	BiomeRegionSize int    `yaml:"biome_region_size"`

	Goals goal.TickScale `yaml:"goals"`

	Spawns []Spawn `yaml:"spawns"`

	Trace Trace `yaml:"trace"`
	Debug Debug `yaml:"debug"`
}

// Spawn places Count mobs of Kind around (X, Z).
type Spawn struct {
	Kind   string `yaml:"kind"`
	Count  int    `yaml:"count"`
	X      int    `yaml:"x"`
	Z      int    `yaml:"z"`
	Spread int    `yaml:"spread"`
}

type Trace struct {
	Log   bool `yaml:"log"`
	Index bool `yaml:"index"`
}

type Debug struct {
	CheckFlags bool `yaml:"check_flags"`
}

func Defaults() Tuning {
	return Tuning{
		WorldID:         "meadow",
		TickRateHz:      20,
		Seed:            1337,
		WorldBoundaryR:  64,
		BiomeRegionSize: 32,
		Goals:           goal.DefaultTickScale(),
		Spawns: []Spawn{
			{Kind: "sheep", Count: 6, Spread: 8},
			{Kind: "wolf", Count: 2, X: 20, Z: 20, Spread: 4},
			{Kind: "fox", Count: 2, X: -20, Z: 12, Spread: 4},
		},
		Trace: Trace{Log: true, Index: true},
	}
}

// Load reads path on top of Defaults and validates the result.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var problems []string
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		problems = append(problems, fmt.Sprintf("tick_rate_hz %d out of range 1..1000", t.TickRateHz))
	}
	if t.Goals.EvalInterval < 1 {
		problems = append(problems, fmt.Sprintf("goals.eval_interval %d must be >= 1", t.Goals.EvalInterval))
	}
	if t.Goals.DelayPermille < 1 {
		problems = append(problems, fmt.Sprintf("goals.delay_permille %d must be >= 1", t.Goals.DelayPermille))
	}
	if t.WorldBoundaryR <= 0 {
		problems = append(problems, "world_boundary_r must be positive")
	}
	for i, s := range t.Spawns {
		if _, err := mobs.Lookup(s.Kind); err != nil {
			problems = append(problems, fmt.Sprintf("spawns[%d]: %v", i, err))
		}
		if s.Count < 0 || s.Spread < 0 {
			problems = append(problems, fmt.Sprintf("spawns[%d]: negative count or spread", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

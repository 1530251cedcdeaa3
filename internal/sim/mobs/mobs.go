// Package mobs defines the mob archetypes: stats plus the goals each kind is
// built from.
package mobs

import (
	"errors"
	"fmt"
	"sort"

	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/goals"
	"mobcraft.ai/internal/sim/mob"
)

var ErrUnknownKind = errors.New("unknown mob kind")

type Archetype struct {
	Kind   string
	MaxHP  int
	Damage int
	Speed  float64 // base tiles per tick
	Build  func(m *mob.Mob) error
}

type registration struct {
	priority int
	goal     goal.Goal
}

func register(m *mob.Mob, behavior, targets []registration) error {
	for _, r := range behavior {
		if err := m.RegisterGoal(r.priority, r.goal); err != nil {
			return fmt.Errorf("%s: goal %s: %w", m.Kind, goal.Name(r.goal), err)
		}
	}
	for _, r := range targets {
		if err := m.RegisterTargetGoal(r.priority, r.goal); err != nil {
			return fmt.Errorf("%s: target goal %s: %w", m.Kind, goal.Name(r.goal), err)
		}
	}
	return nil
}

var archetypes = map[string]Archetype{
	"sheep": {
		Kind:  "sheep",
		MaxHP: 8,
		Speed: 0.23,
		Build: func(m *mob.Mob) error {
			return register(m, []registration{
				{0, goals.NewFloat(m)},
				{1, goals.NewPanic(m, 1.25)},
				{5, goals.NewEatGrass(m, 1000)},
				{6, goals.NewRandomStroll(m, 1.0, 120)},
				{7, goals.NewLookAtNearby(m, 6, 0.02)},
				{8, goals.NewRandomLookAround(m)},
			}, nil)
		},
	},
	"wolf": {
		Kind:   "wolf",
		MaxHP:  8,
		Damage: 2,
		Speed:  0.3,
		Build: func(m *mob.Mob) error {
			return register(m, []registration{
				{1, goals.NewFloat(m)},
				{4, goals.NewMeleeAttack(m, 1.0)},
				{8, goals.NewRandomStroll(m, 1.0, 120)},
				{10, goals.NewLookAtNearby(m, 8, 0.02)},
				{10, goals.NewRandomLookAround(m)},
			}, []registration{
				{3, goals.NewHurtByTarget(m, true)},
				{5, goals.NewNearestAttackableTarget(m, 10, "sheep", "fox")},
			})
		},
	},
	"fox": {
		Kind:   "fox",
		MaxHP:  10,
		Damage: 2,
		Speed:  0.3,
		Build: func(m *mob.Mob) error {
			return register(m, []registration{
				{0, goals.NewFloat(m)},
				{1, goals.NewPanic(m, 1.4)},
				{2, goals.NewAvoidEntity(m, 8, 1.4, "wolf")},
				{4, goals.NewMeleeAttack(m, 1.2)},
				{7, goals.NewRandomStroll(m, 1.0, 120)},
				{9, goals.NewLookAtNearby(m, 8, 0.02)},
			}, []registration{
				{1, goals.NewHurtByTarget(m, false)},
				{4, goals.NewNearestAttackableTarget(m, 10, "sheep")},
			})
		},
	},
}

func Lookup(kind string) (Archetype, error) {
	a, ok := archetypes[kind]
	if !ok {
		return Archetype{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return a, nil
}

// Kinds lists the registered archetypes in name order.
func Kinds() []string {
	out := make([]string, 0, len(archetypes))
	for k := range archetypes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Package mob hosts per-entity AI: each Mob owns a behavior selector and a
// target selector and drives both from Tick.
package mob

import (
	"hash/fnv"
	"log"
	"math/rand"

	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/terrain"
)

// Navigation is the movement capability goals drive. The world applies the
// resulting movement once per tick through Advance.
type Navigation interface {
	MoveTo(target terrain.Vec3i, speed float64) bool
	Stop()
	InProgress() bool
	Done() bool
	Advance(from terrain.Vec3i) terrain.Vec3i
}

// View is the mob's non-owning window onto the world it lives in.
type View interface {
	CurrentTick() uint64
	TileAt(p terrain.Vec3i) terrain.Tile
	SetTile(p terrain.Vec3i, t terrain.Tile)
	InBounds(p terrain.Vec3i) bool
	Solid(p terrain.Vec3i) bool
	// Nearby visits living mobs within radius of center in id order until fn
	// returns false.
	Nearby(center terrain.Vec3i, radius int, fn func(*Mob) bool)
	// Hurt applies damage from source to target and reports whether it landed.
	Hurt(target, source *Mob, amount int) bool
}

const hurtMemoryTicks = 100

type Config struct {
	ID     string
	Kind   string
	Pos    terrain.Vec3i
	MaxHP  int
	Damage int

	View  View
	Nav   Navigation
	Rand  *rand.Rand
	Scale goal.TickScale

	Logger     *log.Logger
	Observer   goal.Observer
	CheckFlags bool
}

type Mob struct {
	ID     string
	Kind   string
	Pos    terrain.Vec3i
	HP     int
	MaxHP  int
	Damage int

	// Goals arbitrates behavior; Targets arbitrates attack target selection.
	Goals   *goal.Selector
	Targets *goal.Selector

	view  View
	nav   Navigation
	rand  *rand.Rand
	scale goal.TickScale

	target       *Mob
	lookAt       *terrain.Vec3i
	jumping      bool
	lastHurtBy   *Mob
	lastHurtTick uint64
	hurtCount    uint64
	ateCount     int

	// A rider that is not a mob steers the entity; autonomous movement,
	// looking and jumping are suppressed while set.
	RiderControlled bool
	// InVehicle additionally suppresses jumping.
	InVehicle bool

	age     uint64
	stagger uint64
	removed bool
}

func New(cfg Config) *Mob {
	if cfg.MaxHP <= 0 {
		cfg.MaxHP = 10
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(int64(hashID(cfg.ID))))
	}
	if cfg.Scale == (goal.TickScale{}) {
		cfg.Scale = goal.DefaultTickScale()
	}
	opts := func(name string) []goal.Option {
		return []goal.Option{
			goal.WithName(name),
			goal.WithLogger(cfg.Logger),
			goal.WithObserver(cfg.Observer),
			goal.WithFlagChecks(cfg.CheckFlags),
		}
	}
	return &Mob{
		ID:      cfg.ID,
		Kind:    cfg.Kind,
		Pos:     cfg.Pos,
		HP:      cfg.MaxHP,
		MaxHP:   cfg.MaxHP,
		Damage:  cfg.Damage,
		Goals:   goal.NewSelector(opts("goals")...),
		Targets: goal.NewSelector(opts("targets")...),
		view:    cfg.View,
		nav:     cfg.Nav,
		rand:    cfg.Rand,
		scale:   cfg.Scale,
		stagger: hashID(cfg.ID),
	}
}

// RegisterGoal adds a behavior goal.
func (m *Mob) RegisterGoal(priority int, g goal.Goal) error { return m.Goals.Add(priority, g) }

// RegisterTargetGoal adds a target-selection goal.
func (m *Mob) RegisterTargetGoal(priority int, g goal.Goal) error {
	return m.Targets.Add(priority, g)
}

// RemoveGoal unregisters g from whichever selector holds it.
func (m *Mob) RemoveGoal(g goal.Goal) {
	m.Goals.Remove(g)
	m.Targets.Remove(g)
}

// Tick drives both selectors once. A full arbitration pass runs every
// EvalInterval ticks (staggered per mob so passes spread across ticks) and
// during the first two ticks of life; in between only goals that require
// every-tick updates are ticked.
func (m *Mob) Tick() {
	if !m.Alive() {
		return
	}
	m.age++
	m.jumping = false
	m.UpdateControlFlags()

	interval := uint64(m.scale.Interval())
	if m.age <= 2 || (m.age+m.stagger)%interval == 0 {
		m.Targets.Tick()
		m.Goals.Tick()
		return
	}
	m.Targets.TickRunningGoals(false)
	m.Goals.TickRunningGoals(false)
}

// UpdateControlFlags disables autonomous MOVE, LOOK and JUMP while a rider
// steers the mob, and JUMP while it sits in a vehicle.
func (m *Mob) UpdateControlFlags() {
	free := !m.RiderControlled
	m.Goals.SetFlagEnabled(goal.Move, free)
	m.Goals.SetFlagEnabled(goal.Look, free)
	m.Goals.SetFlagEnabled(goal.Jump, free && !m.InVehicle)
}

// Discard stops every running goal exactly once. Called on death and when the
// mob leaves the world for any other reason.
func (m *Mob) Discard() {
	if m.removed {
		return
	}
	m.removed = true
	m.Targets.StopAll()
	m.Goals.StopAll()
	if m.nav != nil {
		m.nav.Stop()
	}
	m.target = nil
}

func (m *Mob) Alive() bool { return !m.removed && m.HP > 0 }

func (m *Mob) Removed() bool { return m.removed }

func (m *Mob) Age() uint64 { return m.age }

func (m *Mob) View() View { return m.view }

func (m *Mob) Nav() Navigation { return m.nav }

func (m *Mob) Rand() *rand.Rand { return m.rand }

func (m *Mob) Scale() goal.TickScale { return m.scale }

// Target returns the current attack target, or nil once it has died.
func (m *Mob) Target() *Mob {
	if m.target != nil && !m.target.Alive() {
		return nil
	}
	return m.target
}

func (m *Mob) SetTarget(t *Mob) {
	if t == m {
		t = nil
	}
	m.target = t
}

// LastHurtBy returns the most recent attacker if it hit within the memory
// window and is still alive.
func (m *Mob) LastHurtBy() *Mob {
	if m.lastHurtBy == nil || !m.lastHurtBy.Alive() {
		return nil
	}
	if m.view != nil && m.view.CurrentTick() > m.lastHurtTick+hurtMemoryTicks {
		return nil
	}
	return m.lastHurtBy
}

// HurtCount increases on every hit taken; goals use it to notice new hits.
func (m *Mob) HurtCount() uint64 { return m.hurtCount }

// TakeDamage records a hit. The world calls it from Hurt.
func (m *Mob) TakeDamage(source *Mob, amount int) {
	if !m.Alive() || amount <= 0 {
		return
	}
	m.HP -= amount
	if m.HP < 0 {
		m.HP = 0
	}
	m.hurtCount++
	if source != nil && source != m {
		m.lastHurtBy = source
		if m.view != nil {
			m.lastHurtTick = m.view.CurrentTick()
		}
	}
}

func (m *Mob) Heal(amount int) {
	if amount <= 0 || !m.Alive() {
		return
	}
	m.HP += amount
	if m.HP > m.MaxHP {
		m.HP = m.MaxHP
	}
}

// Ate records a finished meal.
func (m *Mob) Ate() {
	m.ateCount++
	m.Heal(1)
}

func (m *Mob) AteCount() int { return m.ateCount }

func (m *Mob) LookAt(p terrain.Vec3i) { m.lookAt = &p }

// Looking returns where the mob faces this tick, if anywhere in particular.
func (m *Mob) Looking() (terrain.Vec3i, bool) {
	if m.lookAt == nil {
		return terrain.Vec3i{}, false
	}
	return *m.lookAt, true
}

func (m *Mob) ClearLook() { m.lookAt = nil }

func (m *Mob) Jump() { m.jumping = true }

func (m *Mob) Jumping() bool { return m.jumping }

func (m *Mob) InWater() bool {
	return m.view != nil && m.view.TileAt(m.Pos) == terrain.Water
}

// hashID is FNV-1a over the id; it seeds the default random source and
// staggers full selector passes.
func hashID(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

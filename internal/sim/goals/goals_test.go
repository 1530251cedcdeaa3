package goals

import (
	"math/rand"
	"testing"

	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
	"mobcraft.ai/internal/sim/nav"
	"mobcraft.ai/internal/sim/terrain"
)

type testWorld struct {
	tick  uint64
	mobs  []*mob.Mob
	tiles map[terrain.Vec3i]terrain.Tile
}

func (w *testWorld) CurrentTick() uint64 { return w.tick }

func (w *testWorld) TileAt(p terrain.Vec3i) terrain.Tile {
	if t, ok := w.tiles[p]; ok {
		return t
	}
	return terrain.Grass
}

func (w *testWorld) SetTile(p terrain.Vec3i, t terrain.Tile) { w.tiles[p] = t }

func (w *testWorld) InBounds(p terrain.Vec3i) bool {
	return p.X >= -32 && p.X <= 32 && p.Z >= -32 && p.Z <= 32
}

func (w *testWorld) Solid(p terrain.Vec3i) bool { return w.TileAt(p).Solid() }

func (w *testWorld) Nearby(center terrain.Vec3i, radius int, fn func(*mob.Mob) bool) {
	for _, m := range w.mobs {
		if m.Alive() && terrain.DistSq(center, m.Pos) <= radius*radius {
			if !fn(m) {
				return
			}
		}
	}
}

func (w *testWorld) Hurt(target, source *mob.Mob, amount int) bool {
	if !target.Alive() {
		return false
	}
	target.TakeDamage(source, amount)
	return true
}

func (w *testWorld) spawn(id, kind string, pos terrain.Vec3i) *mob.Mob {
	m := mob.New(mob.Config{
		ID:     id,
		Kind:   kind,
		Pos:    pos,
		MaxHP:  10,
		Damage: 2,
		View:   w,
		Nav:    nav.New(w, 1),
		Rand:   rand.New(rand.NewSource(int64(len(w.mobs) + 1))),
		Scale:  goal.TickScale{EvalInterval: 1, DelayPermille: 1000},
	})
	w.mobs = append(w.mobs, m)
	return m
}

// step mirrors the world loop: AI for every mob, then movement.
func (w *testWorld) step() {
	w.tick++
	for _, m := range w.mobs {
		m.Tick()
	}
	for _, m := range w.mobs {
		if m.Alive() {
			m.Pos = m.Nav().Advance(m.Pos)
		}
	}
}

func newTestWorld() *testWorld {
	return &testWorld{tiles: map[terrain.Vec3i]terrain.Tile{}}
}

func TestPanicInterruptsEating(t *testing.T) {
	w := newTestWorld()
	sheep := w.spawn("S1", "sheep", terrain.Vec3i{})
	wolf := w.spawn("W1", "wolf", terrain.Vec3i{X: 6})
	panicGoal := NewPanic(sheep, 1.25)
	eat := NewEatGrass(sheep, 1)
	_ = sheep.RegisterGoal(1, panicGoal)
	_ = sheep.RegisterGoal(5, eat)

	w.step()
	if !sheep.Goals.IsRunning(eat) {
		t.Fatalf("sheep is not eating")
	}

	w.Hurt(sheep, wolf, 1)
	w.step()
	if !sheep.Goals.IsRunning(panicGoal) || sheep.Goals.IsRunning(eat) {
		t.Fatalf("panic did not preempt eating: %v", sheep.Goals.RunningGoals())
	}
	if eat.Remaining() != 0 {
		t.Fatalf("interrupted meal kept its timer")
	}
	if w.tiles[terrain.Vec3i{}] == terrain.Dirt {
		t.Fatalf("interrupted meal still consumed the grass")
	}
}

func TestEatGrassConsumesTile(t *testing.T) {
	w := newTestWorld()
	sheep := w.spawn("S1", "sheep", terrain.Vec3i{X: 2, Z: 2})
	sheep.HP = 5
	eat := NewEatGrass(sheep, 1)
	_ = sheep.RegisterGoal(5, eat)

	for i := 0; i < 50; i++ {
		w.step()
	}
	if sheep.AteCount() != 1 {
		t.Fatalf("ate %d times", sheep.AteCount())
	}
	if w.TileAt(sheep.Pos) != terrain.Dirt {
		t.Fatalf("grass not eaten")
	}
	if sheep.HP != 6 {
		t.Fatalf("meal did not heal: hp=%d", sheep.HP)
	}
	if sheep.Goals.IsRunning(eat) {
		t.Fatalf("eat goal running on dirt")
	}
}

func TestWolfHuntsSheep(t *testing.T) {
	w := newTestWorld()
	wolf := w.spawn("W1", "wolf", terrain.Vec3i{})
	sheep := w.spawn("S1", "sheep", terrain.Vec3i{X: 4, Z: 1})
	_ = wolf.RegisterGoal(4, NewMeleeAttack(wolf, 1.0))
	_ = wolf.RegisterTargetGoal(5, NewNearestAttackableTarget(wolf, 0, "sheep"))

	for i := 0; i < 40 && sheep.Alive(); i++ {
		w.step()
	}
	if sheep.HP >= 10 {
		t.Fatalf("sheep never hit")
	}
	if sheep.LastHurtBy() != wolf && sheep.Alive() {
		t.Fatalf("sheep does not remember the wolf")
	}
}

func TestTargetClearedWhenPreyDies(t *testing.T) {
	w := newTestWorld()
	wolf := w.spawn("W1", "wolf", terrain.Vec3i{})
	sheep := w.spawn("S1", "sheep", terrain.Vec3i{X: 1})
	hunt := NewNearestAttackableTarget(wolf, 0, "sheep")
	_ = wolf.RegisterTargetGoal(5, hunt)

	w.step()
	if wolf.Target() != sheep {
		t.Fatalf("wolf did not pick the sheep")
	}
	sheep.TakeDamage(nil, sheep.HP)
	w.step()
	if wolf.Targets.IsRunning(hunt) || wolf.Target() != nil {
		t.Fatalf("target goal kept a dead target")
	}
}

func TestHurtByTargetAlertsPack(t *testing.T) {
	w := newTestWorld()
	w1 := w.spawn("W1", "wolf", terrain.Vec3i{})
	w2 := w.spawn("W2", "wolf", terrain.Vec3i{X: 2})
	fox := w.spawn("F1", "fox", terrain.Vec3i{X: -2})
	_ = w1.RegisterTargetGoal(3, NewHurtByTarget(w1, true))

	w.Hurt(w1, fox, 1)
	w.step()
	if w1.Target() != fox {
		t.Fatalf("hurt wolf did not target the fox")
	}
	if w2.Target() != fox {
		t.Fatalf("pack member was not alerted")
	}
}

func TestHurtByTargetIgnoresSameKind(t *testing.T) {
	w := newTestWorld()
	w1 := w.spawn("W1", "wolf", terrain.Vec3i{})
	w2 := w.spawn("W2", "wolf", terrain.Vec3i{X: 1})
	_ = w1.RegisterTargetGoal(3, NewHurtByTarget(w1, false))

	w.Hurt(w1, w2, 1)
	w.step()
	if w1.Target() != nil {
		t.Fatalf("wolf retaliated against its own kind")
	}
}

func TestAvoidEntityFlees(t *testing.T) {
	w := newTestWorld()
	fox := w.spawn("F1", "fox", terrain.Vec3i{})
	w.spawn("W1", "wolf", terrain.Vec3i{X: 3})
	avoid := NewAvoidEntity(fox, 8, 1.4, "wolf")
	_ = fox.RegisterGoal(2, avoid)

	w.step()
	if !fox.Goals.IsRunning(avoid) {
		t.Fatalf("fox did not start fleeing")
	}
	if d := terrain.DistSq(avoid.dest, terrain.Vec3i{X: 3}); d <= 9 {
		t.Fatalf("flight destination %v is not away from the wolf", avoid.dest)
	}
	for i := 0; i < 10; i++ {
		w.step()
	}
	if fox.Pos == (terrain.Vec3i{}) {
		t.Fatalf("fox never moved")
	}
}

func TestFloatJumpsInWater(t *testing.T) {
	w := newTestWorld()
	w.tiles[terrain.Vec3i{}] = terrain.Water
	m := w.spawn("S1", "sheep", terrain.Vec3i{})
	_ = m.RegisterGoal(0, NewFloat(m))

	jumps := 0
	for i := 0; i < 10; i++ {
		w.step()
		if m.Jumping() {
			jumps++
		}
	}
	if jumps == 0 {
		t.Fatalf("never jumped in water")
	}
}

func TestRandomStrollMoves(t *testing.T) {
	w := newTestWorld()
	m := w.spawn("S1", "sheep", terrain.Vec3i{})
	stroll := NewRandomStroll(m, 1.0, 1)
	_ = m.RegisterGoal(6, stroll)

	moved := false
	for i := 0; i < 30; i++ {
		w.step()
		if m.Pos != (terrain.Vec3i{}) {
			moved = true
		}
	}
	if !moved {
		t.Fatalf("sheep never moved")
	}
}

func TestLookAtNearby(t *testing.T) {
	w := newTestWorld()
	m := w.spawn("S1", "sheep", terrain.Vec3i{})
	other := w.spawn("S2", "sheep", terrain.Vec3i{X: 2})
	look := NewLookAtNearby(m, 6, 1.0)
	_ = m.RegisterGoal(7, look)

	w.step()
	p, ok := m.Looking()
	if !ok || p != other.Pos {
		t.Fatalf("looking at %v ok=%v", p, ok)
	}
}

// Package world owns the mob table and advances every mob's AI in a fixed,
// deterministic order once per tick.
package world

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"mobcraft.ai/internal/sim/mob"
	"mobcraft.ai/internal/sim/mobs"
	"mobcraft.ai/internal/sim/nav"
	"mobcraft.ai/internal/sim/terrain"
)

var ErrBlockedSpawn = errors.New("spawn position blocked")

type World struct {
	cfg     Config
	log     *log.Logger
	terrain *terrain.Map

	tick   atomic.Uint64
	mobs   map[string]*mob.Mob
	order  []string // mob ids, sorted
	serial map[string]int

	// pending collects trace records between steps.
	pending TickTrace
	sinks   []TraceSink

	watchers map[string]*watcher
	metrics  metricsBox

	spawnReq   chan SpawnRequest
	despawnReq chan string
	watch      chan WatchRequest
	unwatch    chan string
	stop       chan struct{}
	stopOnce   sync.Once
}

func New(cfg Config) *World {
	cfg.applyDefaults()
	return &World{
		cfg: cfg,
		log: cfg.Logger,
		terrain: terrain.New(terrain.Config{
			Seed:            cfg.Seed,
			BoundaryR:       cfg.BoundaryR,
			BiomeRegionSize: cfg.BiomeRegionSize,
		}),
		mobs:       map[string]*mob.Mob{},
		serial:     map[string]int{},
		watchers:   map[string]*watcher{},
		spawnReq:   make(chan SpawnRequest, 64),
		despawnReq: make(chan string, 64),
		watch:      make(chan WatchRequest, 16),
		unwatch:    make(chan string, 16),
		stop:       make(chan struct{}),
	}
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) TickRateHz() int { return w.cfg.TickRateHz }

func (w *World) Config() Config { return w.cfg }

func (w *World) Terrain() *terrain.Map { return w.terrain }

// AddSink registers a trace consumer. Not safe to call while Run is active.
func (w *World) AddSink(s TraceSink) {
	if s != nil {
		w.sinks = append(w.sinks, s)
	}
}

// Spawn creates a mob of kind at pos and wires its archetype goals. Ids are
// "<kind>-<n>" in spawn order, so a seeded world always yields the same ids.
func (w *World) Spawn(kind string, pos terrain.Vec3i) (*mob.Mob, error) {
	arch, err := mobs.Lookup(kind)
	if err != nil {
		return nil, err
	}
	pos.Y = 0
	if !w.terrain.InBounds(pos) || w.terrain.Solid(pos) {
		return nil, fmt.Errorf("spawn %s at %v: %w", kind, pos.Array(), ErrBlockedSpawn)
	}
	w.serial[kind]++
	id := fmt.Sprintf("%s-%d", kind, w.serial[kind])

	m := mob.New(mob.Config{
		ID:         id,
		Kind:       arch.Kind,
		Pos:        pos,
		MaxHP:      arch.MaxHP,
		Damage:     arch.Damage,
		View:       w,
		Nav:        nav.New(w.terrain, arch.Speed),
		Rand:       rand.New(rand.NewSource(w.mobSeed(id))),
		Scale:      w.cfg.Scale,
		Logger:     w.log,
		Observer:   w.recorder(id),
		CheckFlags: w.cfg.CheckFlags,
	})
	if err := arch.Build(m); err != nil {
		return nil, fmt.Errorf("build %s: %w", id, err)
	}
	w.mobs[id] = m
	i := sort.SearchStrings(w.order, id)
	w.order = append(w.order, "")
	copy(w.order[i+1:], w.order[i:])
	w.order[i] = id
	w.pending.Spawns = append(w.pending.Spawns, SpawnRecord{MobID: id, Kind: kind, Pos: pos.Array()})
	return m, nil
}

// SpawnNear spawns kind at the first open tile found spiralling out from
// center.
func (w *World) SpawnNear(kind string, center terrain.Vec3i, maxRadius int) (*mob.Mob, error) {
	for r := 0; r <= maxRadius; r++ {
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				if abs(dx) != r && abs(dz) != r {
					continue
				}
				p := terrain.Vec3i{X: center.X + dx, Z: center.Z + dz}
				if !w.terrain.InBounds(p) || w.terrain.Solid(p) {
					continue
				}
				return w.Spawn(kind, p)
			}
		}
	}
	return nil, fmt.Errorf("spawn %s near %v: %w", kind, center.Array(), ErrBlockedSpawn)
}

// Despawn removes a mob, stopping its running goals.
func (w *World) Despawn(id string) bool {
	m := w.mobs[id]
	if m == nil {
		return false
	}
	m.Discard()
	w.remove(id)
	w.pending.Despawns = append(w.pending.Despawns, id)
	return true
}

func (w *World) remove(id string) {
	delete(w.mobs, id)
	i := sort.SearchStrings(w.order, id)
	if i < len(w.order) && w.order[i] == id {
		w.order = append(w.order[:i], w.order[i+1:]...)
	}
}

func (w *World) Mob(id string) *mob.Mob { return w.mobs[id] }

// Mobs returns the live mob table in id order.
func (w *World) Mobs() []*mob.Mob {
	out := make([]*mob.Mob, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.mobs[id])
	}
	return out
}

func (w *World) mobSeed(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return w.cfg.Seed ^ int64(h.Sum64())
}

// ---- mob.View ----

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) TileAt(p terrain.Vec3i) terrain.Tile { return w.terrain.TileAt(p) }

func (w *World) SetTile(p terrain.Vec3i, t terrain.Tile) { w.terrain.SetTile(p, t) }

func (w *World) InBounds(p terrain.Vec3i) bool { return w.terrain.InBounds(p) }

func (w *World) Solid(p terrain.Vec3i) bool { return w.terrain.Solid(p) }

func (w *World) Nearby(center terrain.Vec3i, radius int, fn func(*mob.Mob) bool) {
	if radius < 0 {
		return
	}
	r2 := radius * radius
	for _, id := range w.order {
		m := w.mobs[id]
		if !m.Alive() || terrain.DistSq(center, m.Pos) > r2 {
			continue
		}
		if !fn(m) {
			return
		}
	}
}

func (w *World) Hurt(target, source *mob.Mob, amount int) bool {
	if target == nil || !target.Alive() || amount <= 0 {
		return false
	}
	if source != nil && !source.Alive() {
		return false
	}
	target.TakeDamage(source, amount)
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

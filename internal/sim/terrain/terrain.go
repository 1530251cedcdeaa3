// Package terrain answers "what is under this tile" for mob goals. Tiles are
// derived from the seed on demand; only edits (eaten grass) are stored.
package terrain

import "math"

type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func (v Vec3i) Array() [3]int { return [3]int{v.X, v.Y, v.Z} }

func Manhattan(a, b Vec3i) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y) + abs(a.Z-b.Z)
}

func DistSq(a, b Vec3i) int {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

func Dist(a, b Vec3i) float64 { return math.Sqrt(float64(DistSq(a, b))) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

type Tile uint8

const (
	Grass Tile = iota
	Dirt
	Sand
	Water
	Rock
	Tree
)

func (t Tile) String() string {
	switch t {
	case Grass:
		return "GRASS"
	case Dirt:
		return "DIRT"
	case Sand:
		return "SAND"
	case Water:
		return "WATER"
	case Rock:
		return "ROCK"
	case Tree:
		return "TREE"
	default:
		return "UNKNOWN"
	}
}

// Solid tiles block movement.
func (t Tile) Solid() bool { return t == Rock || t == Tree }

type Biome string

const (
	Plains Biome = "PLAINS"
	Forest Biome = "FOREST"
	Desert Biome = "DESERT"
)

type Config struct {
	Seed            int64
	BoundaryR       int
	BiomeRegionSize int
}

type Map struct {
	cfg   Config
	edits map[Vec3i]Tile
}

func New(cfg Config) *Map {
	if cfg.BiomeRegionSize <= 0 {
		cfg.BiomeRegionSize = 64
	}
	return &Map{cfg: cfg, edits: map[Vec3i]Tile{}}
}

func (m *Map) Seed() int64 { return m.cfg.Seed }

// InBounds reports whether p lies inside the square world boundary.
func (m *Map) InBounds(p Vec3i) bool {
	if m.cfg.BoundaryR <= 0 {
		return true
	}
	return abs(p.X) <= m.cfg.BoundaryR && abs(p.Z) <= m.cfg.BoundaryR
}

func (m *Map) BiomeAt(x, z int) Biome {
	rx := FloorDiv(x, m.cfg.BiomeRegionSize)
	rz := FloorDiv(z, m.cfg.BiomeRegionSize)
	switch Hash2(m.cfg.Seed, rx, rz) % 3 {
	case 0:
		return Plains
	case 1:
		return Forest
	default:
		return Desert
	}
}

func (m *Map) TileAt(p Vec3i) Tile {
	p.Y = 0
	if !m.InBounds(p) {
		return Rock
	}
	if t, ok := m.edits[p]; ok {
		return t
	}
	return m.generated(p.X, p.Z)
}

func (m *Map) SetTile(p Vec3i, t Tile) {
	p.Y = 0
	if t == m.generated(p.X, p.Z) {
		delete(m.edits, p)
		return
	}
	m.edits[p] = t
}

// Edits returns the number of tiles differing from the generated layout.
func (m *Map) Edits() int { return len(m.edits) }

func (m *Map) Solid(p Vec3i) bool { return m.TileAt(p).Solid() }

func (m *Map) generated(x, z int) Tile {
	seed := m.cfg.Seed
	if InCluster(seed+11, x, z, 48, 3, 300) {
		return Water
	}
	switch m.BiomeAt(x, z) {
	case Forest:
		if InCluster(seed+21, x, z, 12, 1, 450) {
			return Tree
		}
	case Desert:
		if InCluster(seed+31, x, z, 32, 2, 250) {
			return Rock
		}
		return Sand
	}
	if InCluster(seed+41, x, z, 24, 2, 200) {
		return Dirt
	}
	return Grass
}

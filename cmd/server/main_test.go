package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mobcraft.ai/internal/sim/terrain"
	"mobcraft.ai/internal/sim/tuning"
	"mobcraft.ai/internal/sim/world"
)

func TestIsLoopbackRemote(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:8080", true},
		{"[::1]:9000", true},
		{"::1", true},
		{"10.0.0.5:1234", false},
		{"example.com:80", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isLoopbackRemote(tc.addr); got != tc.want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", tc.addr, got, tc.want)
		}
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("MC_TEST_FLAG", "on")
	if !envBool("MC_TEST_FLAG", false) {
		t.Fatalf("on should be true")
	}
	t.Setenv("MC_TEST_FLAG", "0")
	if envBool("MC_TEST_FLAG", true) {
		t.Fatalf("0 should be false")
	}
	t.Setenv("MC_TEST_FLAG", "maybe")
	if !envBool("MC_TEST_FLAG", true) {
		t.Fatalf("unknown value should keep default")
	}
}

func runWorld(t *testing.T) *world.World {
	t.Helper()
	tune := tuning.Defaults()
	tune.TickRateHz = 50
	w := world.New(worldConfig(tune, nil))
	if err := w.Populate(placements(tune)); err != nil {
		t.Fatalf("populate: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w
}

// openTile finds a walkable tile on a fresh copy of the generated terrain;
// the running world's map is owned by its loop.
func openTile(t *testing.T, tune tuning.Tuning) terrain.Vec3i {
	t.Helper()
	m := terrain.New(terrain.Config{Seed: tune.Seed, BoundaryR: tune.WorldBoundaryR, BiomeRegionSize: tune.BiomeRegionSize})
	for x := 30; x < 40; x++ {
		for z := -40; z < -30; z++ {
			p := terrain.Vec3i{X: x, Z: z}
			if m.InBounds(p) && !m.Solid(p) {
				return p
			}
		}
	}
	t.Fatalf("no open tile")
	return terrain.Vec3i{}
}

func TestSpawnHandler(t *testing.T) {
	w := runWorld(t)
	h := spawnHandler(w)
	at := openTile(t, tuning.Defaults())

	body := fmt.Sprintf(`{"kind":"wolf","x":%d,"z":%d}`, at.X, at.Z)
	req := httptest.NewRequest(http.MethodPost, "/admin/v1/spawn", strings.NewReader(body))
	req.RemoteAddr = "127.0.0.1:5000"
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"wolf-`) {
		t.Fatalf("spawn: code=%d body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/spawn", strings.NewReader(`{"kind":"dragon"}`))
	req.RemoteAddr = "127.0.0.1:5000"
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown kind: code=%d body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/v1/spawn", strings.NewReader(`{"kind":"wolf"}`))
	req.RemoteAddr = "203.0.113.9:5000"
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote caller: code=%d", rec.Code)
	}
}

func TestDespawnHandler(t *testing.T) {
	w := runWorld(t)
	h := despawnHandler(w)

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/despawn?id=sheep-1", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("despawn: code=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/v1/despawn?id=sheep-1", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: code=%d", rec.Code)
	}
}

func TestWriteMetrics(t *testing.T) {
	tune := tuning.Defaults()
	w := world.New(worldConfig(tune, nil))
	if err := w.Populate(placements(tune)); err != nil {
		t.Fatalf("populate: %v", err)
	}
	w.StepN(5)

	rec := httptest.NewRecorder()
	writeMetrics(rec, w.ID(), w.Metrics(), nil)
	body := rec.Body.String()
	for _, want := range []string{
		`mobcraft_world_tick{world="meadow"} 4`,
		`mobcraft_world_mobs{world="meadow",kind="sheep"} 6`,
		`mobcraft_world_mobs{world="meadow",kind="wolf"} 2`,
		"# TYPE mobcraft_goal_transitions_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "mobcraft_index_queue_depth") {
		t.Fatalf("index metrics without an index")
	}
}

func TestPlacementsFollowTuning(t *testing.T) {
	tune := tuning.Defaults()
	ps := placements(tune)
	if len(ps) != len(tune.Spawns) {
		t.Fatalf("placements=%d spawns=%d", len(ps), len(tune.Spawns))
	}
	if ps[1].Kind != "wolf" || ps[1].Center.X != 20 || ps[1].Center.Z != 20 {
		t.Fatalf("wolf placement: %+v", ps[1])
	}
}

package world

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"mobcraft.ai/internal/protocol"
	"mobcraft.ai/internal/sim/goal"
	"mobcraft.ai/internal/sim/mob"
	"mobcraft.ai/internal/sim/mobs"
	"mobcraft.ai/internal/sim/terrain"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()
	return New(Config{ID: "test", Seed: 7, BoundaryR: 48, Scale: goal.TickScale{EvalInterval: 2, DelayPermille: 1000}})
}

func mustSpawn(t *testing.T, w *World, kind string, at terrain.Vec3i) *mob.Mob {
	t.Helper()
	m, err := w.SpawnNear(kind, at, 8)
	if err != nil {
		t.Fatalf("spawn %s: %v", kind, err)
	}
	return m
}

type idleGoal struct {
	goal.Base
	name  string
	boom  bool
	stops int
}

func (g *idleGoal) Name() string      { return g.name }
func (g *idleGoal) CanStart() bool    { return true }
func (g *idleGoal) CanContinue() bool { return true }
func (g *idleGoal) Stop()             { g.stops++ }

func (g *idleGoal) Tick() {
	if g.boom {
		panic("boom")
	}
}

type memSink struct{ traces []TickTrace }

func (s *memSink) WriteTrace(tr TickTrace) error {
	s.traces = append(s.traces, tr)
	return nil
}

func TestSpawn_UnknownKind(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.Spawn("dragon", terrain.Vec3i{}); !errors.Is(err, mobs.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestSpawn_OutOfBounds(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.Spawn("sheep", terrain.Vec3i{X: 1000}); !errors.Is(err, ErrBlockedSpawn) {
		t.Fatalf("expected ErrBlockedSpawn, got %v", err)
	}
}

func TestSpawn_IDsAndOrder(t *testing.T) {
	w := newTestWorld(t)
	a := mustSpawn(t, w, "wolf", terrain.Vec3i{})
	b := mustSpawn(t, w, "sheep", terrain.Vec3i{X: 5})
	c := mustSpawn(t, w, "sheep", terrain.Vec3i{X: -5})
	if a.ID != "wolf-1" || b.ID != "sheep-1" || c.ID != "sheep-2" {
		t.Fatalf("ids: %s %s %s", a.ID, b.ID, c.ID)
	}
	var got []string
	for _, m := range w.Mobs() {
		got = append(got, m.ID)
	}
	if want := []string{"sheep-1", "sheep-2", "wolf-1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order: got %v want %v", got, want)
	}
	if a.Goals.Len() == 0 || a.Targets.Len() == 0 {
		t.Fatalf("archetype goals not wired")
	}
}

func TestNearby_IDOrderAndRadius(t *testing.T) {
	w := newTestWorld(t)
	s1 := mustSpawn(t, w, "sheep", terrain.Vec3i{})
	mustSpawn(t, w, "sheep", s1.Pos.Add(terrain.Vec3i{X: 30}))
	wolf := mustSpawn(t, w, "wolf", s1.Pos)

	var seen []string
	w.Nearby(s1.Pos, 10, func(m *mob.Mob) bool {
		seen = append(seen, m.ID)
		return true
	})
	if len(seen) != 2 || seen[0] != s1.ID || seen[1] != wolf.ID {
		t.Fatalf("nearby: %v", seen)
	}

	n := 0
	w.Nearby(s1.Pos, 10, func(*mob.Mob) bool {
		n++
		return false
	})
	if n != 1 {
		t.Fatalf("visit did not stop early: %d", n)
	}
}

func TestStep_Deterministic(t *testing.T) {
	run := func() ([]TickTrace, [][3]int) {
		w := newTestWorld(t)
		for i := 0; i < 4; i++ {
			mustSpawn(t, w, "sheep", terrain.Vec3i{X: i * 3, Z: 2})
		}
		mustSpawn(t, w, "wolf", terrain.Vec3i{X: -6})
		mustSpawn(t, w, "fox", terrain.Vec3i{Z: -6})
		traces := w.StepN(300)
		var pos [][3]int
		for _, m := range w.Mobs() {
			pos = append(pos, m.Pos.Array())
		}
		return traces, pos
	}
	t1, p1 := run()
	t2, p2 := run()
	if !reflect.DeepEqual(t1, t2) {
		t.Fatalf("traces differ between identical runs")
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Fatalf("positions differ: %v vs %v", p1, p2)
	}
	if len(t1) == 0 {
		t.Fatalf("expected some goal activity")
	}
}

func TestStep_DeathHaltsGoals(t *testing.T) {
	w := newTestWorld(t)
	sink := &memSink{}
	w.AddSink(sink)
	m := mustSpawn(t, w, "sheep", terrain.Vec3i{})
	g := &idleGoal{name: "idle"}
	if err := m.RegisterGoal(100, g); err != nil {
		t.Fatal(err)
	}
	w.Step()
	if !m.Goals.IsRunning(g) {
		t.Fatalf("idle goal not running")
	}

	if !w.Hurt(m, nil, 100) {
		t.Fatalf("hurt did not land")
	}
	tr := w.Step()
	if !reflect.DeepEqual(tr.Deaths, []string{m.ID}) {
		t.Fatalf("deaths: %v", tr.Deaths)
	}
	if w.Mob(m.ID) != nil || !m.Removed() {
		t.Fatalf("dead mob still in the table")
	}
	if g.stops != 1 {
		t.Fatalf("goal stopped %d times", g.stops)
	}
	found := false
	for _, r := range tr.Transitions {
		if r.Name == "idle" && r.Kind == "STOP" && r.Reason == string(goal.ReasonHalted) {
			found = true
		}
	}
	if !found {
		t.Fatalf("no HALTED transition in %+v", tr.Transitions)
	}
	if last := sink.traces[len(sink.traces)-1]; last.Tick != tr.Tick {
		t.Fatalf("sink missed tick %d", tr.Tick)
	}
	if w.Hurt(m, nil, 1) {
		t.Fatalf("hurt landed on a dead mob")
	}
}

func TestStep_FaultRecorded(t *testing.T) {
	w := newTestWorld(t)
	m := mustSpawn(t, w, "sheep", terrain.Vec3i{})
	bad := &idleGoal{name: "bad", boom: true}
	_ = m.RegisterGoal(100, bad)

	tr := w.Step()
	var fault *TransitionRecord
	for i := range tr.Transitions {
		if tr.Transitions[i].Faulted() {
			fault = &tr.Transitions[i]
		}
	}
	if fault == nil || fault.Name != "bad" || fault.Error == "" {
		t.Fatalf("fault not recorded: %+v", tr.Transitions)
	}
	if !m.Goals.Faulted(bad) {
		t.Fatalf("goal not quarantined")
	}
	// The world keeps running.
	w.StepN(5)
	if !m.Alive() {
		t.Fatalf("faulting goal killed the mob")
	}
}

func TestSpawnTrace(t *testing.T) {
	w := newTestWorld(t)
	m := mustSpawn(t, w, "fox", terrain.Vec3i{})
	tr := w.Step()
	if len(tr.Spawns) != 1 || tr.Spawns[0].MobID != m.ID || tr.Spawns[0].Kind != "fox" {
		t.Fatalf("spawns: %+v", tr.Spawns)
	}
	if tr.Tick != 0 || w.CurrentTick() != 1 {
		t.Fatalf("tick bookkeeping: trace=%d now=%d", tr.Tick, w.CurrentTick())
	}
}

func TestWatchFrames(t *testing.T) {
	w := newTestWorld(t)
	mustSpawn(t, w, "sheep", terrain.Vec3i{})
	wolf := mustSpawn(t, w, "wolf", terrain.Vec3i{X: 10})

	out := make(chan []byte, 4)
	w.handleWatch(WatchRequest{SessionID: "s1", Out: out, Kinds: []string{"wolf"}})
	w.Step()

	var msg protocol.GoalsMsg
	select {
	case b := <-out:
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
	default:
		t.Fatalf("no frame delivered")
	}
	if msg.Type != protocol.TypeGoals || msg.WorldID != "test" {
		t.Fatalf("frame header: %+v", msg)
	}
	if len(msg.Mobs) != 1 || msg.Mobs[0].ID != wolf.ID {
		t.Fatalf("filter not applied: %+v", msg.Mobs)
	}
	for _, r := range msg.Transitions {
		if r.MobID != wolf.ID {
			t.Fatalf("transition for unwatched mob %s", r.MobID)
		}
	}

	w.handleUnwatch("s1")
	if _, ok := <-out; ok {
		t.Fatalf("expected channel closed after unwatch")
	}
}

func TestSendLatest_DropsOldest(t *testing.T) {
	ch := make(chan []byte, 1)
	sendLatest(ch, []byte("a"))
	sendLatest(ch, []byte("b"))
	if got := string(<-ch); got != "b" {
		t.Fatalf("got %q", got)
	}
}

func TestRun_SpawnQueueAndCancel(t *testing.T) {
	w := New(Config{ID: "run", Seed: 3, TickRateHz: 200})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	reply := make(chan SpawnResult, 1)
	w.SpawnQueue() <- SpawnRequest{Kind: "wolf", Pos: terrain.Vec3i{}, Reply: reply}
	select {
	case res := <-reply:
		if res.Err != nil && !errors.Is(res.Err, ErrBlockedSpawn) {
			t.Fatalf("spawn: %v", res.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("spawn request not served")
	}

	bad := make(chan SpawnResult, 1)
	w.SpawnQueue() <- SpawnRequest{Kind: "dragon", Reply: bad}
	select {
	case res := <-bad:
		if !errors.Is(res.Err, mobs.ErrUnknownKind) {
			t.Fatalf("expected unknown kind, got %v", res.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("spawn request not served")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestRun_Stop(t *testing.T) {
	w := New(Config{TickRateHz: 100})
	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	w.Stop()
	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func testPlacements() []Placement {
	return []Placement{
		{Kind: "sheep", Count: 4, Spread: 6},
		{Kind: "wolf", Count: 1, Center: terrain.Vec3i{X: 10, Z: 10}, Spread: 2},
		{Kind: "fox", Count: 1, Center: terrain.Vec3i{X: -10, Z: 5}, Spread: 2},
	}
}

func TestPopulate_Deterministic(t *testing.T) {
	a, b := newTestWorld(t), newTestWorld(t)
	if err := a.Populate(testPlacements()); err != nil {
		t.Fatal(err)
	}
	if err := b.Populate(testPlacements()); err != nil {
		t.Fatal(err)
	}
	if len(a.Mobs()) != 6 {
		t.Fatalf("populated %d mobs", len(a.Mobs()))
	}
	for i, m := range a.Mobs() {
		o := b.Mobs()[i]
		if m.ID != o.ID || m.Pos != o.Pos {
			t.Fatalf("mob %d differs: %s@%v vs %s@%v", i, m.ID, m.Pos, o.ID, o.Pos)
		}
	}
	if err := a.Populate([]Placement{{Kind: "dragon", Count: 1}}); !errors.Is(err, mobs.ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}

func TestReplay_VerifiesRecording(t *testing.T) {
	live := newTestWorld(t)
	sink := &memSink{}
	live.AddSink(sink)
	if err := live.Populate(testPlacements()); err != nil {
		t.Fatal(err)
	}
	live.StepN(120)
	live.Despawn("sheep-2")
	live.StepN(60)

	if err := newTestWorld(t).Verify(sink.traces); err != nil {
		t.Fatalf("faithful replay diverged: %v", err)
	}

	tampered := append([]TickTrace(nil), sink.traces...)
	k := -1
	for i, tr := range tampered {
		if len(tr.Transitions) > 0 {
			k = i
			break
		}
	}
	if k < 0 {
		t.Fatalf("recording has no transitions")
	}
	trs := append([]TransitionRecord(nil), tampered[k].Transitions...)
	trs[0].Name = "not_a_goal"
	tampered[k].Transitions = trs

	err := newTestWorld(t).Verify(tampered)
	var mm *Mismatch
	if !errors.As(err, &mm) || mm.Tick != tampered[k].Tick {
		t.Fatalf("expected mismatch at tick %d, got %v", tampered[k].Tick, err)
	}
}

func TestApplyRecorded_WrongTick(t *testing.T) {
	w := newTestWorld(t)
	if err := w.ApplyRecorded(TickTrace{Tick: 5}); err == nil {
		t.Fatalf("expected tick mismatch error")
	}
}

func TestMetrics(t *testing.T) {
	w := newTestWorld(t)
	if err := w.Populate(testPlacements()); err != nil {
		t.Fatal(err)
	}
	w.StepN(300)
	m := w.Metrics()
	if m.Tick != 299 || m.Mobs != len(w.Mobs()) {
		t.Fatalf("metrics: %+v", m)
	}
	sum := 0
	for _, n := range m.MobsByKind {
		sum += n
	}
	if sum != m.Mobs {
		t.Fatalf("kind counts %v do not add up to %d", m.MobsByKind, m.Mobs)
	}
	if m.TransitionsTotal == 0 {
		t.Fatalf("expected goal activity: %+v", m)
	}
	before := w.Metrics().MobsByKind["sheep"]
	m.MobsByKind["sheep"] = -1
	if w.Metrics().MobsByKind["sheep"] != before {
		t.Fatalf("metrics map shared with caller")
	}
}

func TestShutdown_HaltsGoalsAfterRun(t *testing.T) {
	w := New(Config{ID: "test", Seed: 7, BoundaryR: 48, TickRateHz: 100})
	sink := &memSink{}
	w.AddSink(sink)
	m := mustSpawn(t, w, "sheep", terrain.Vec3i{})
	idle := &idleGoal{name: "idle"}
	if err := m.RegisterGoal(0, idle); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
	if !m.Goals.IsRunning(idle) {
		t.Fatalf("idle goal not running before shutdown")
	}

	final := w.Shutdown()
	if idle.stops != 1 || !m.Removed() || len(w.Mobs()) != 0 {
		t.Fatalf("after shutdown: stops=%d removed=%v mobs=%d", idle.stops, m.Removed(), len(w.Mobs()))
	}
	if len(final.Despawns) != 1 || final.Despawns[0] != m.ID {
		t.Fatalf("despawns: %v", final.Despawns)
	}
	halted := false
	for _, tr := range final.Transitions {
		if tr.MobID == m.ID && tr.Name == "idle" && tr.Reason == string(goal.ReasonHalted) {
			halted = true
		}
	}
	if !halted {
		t.Fatalf("no HALTED transition for idle goal: %+v", final.Transitions)
	}
	if len(sink.traces) == 0 || !SameTrace(sink.traces[len(sink.traces)-1], final) {
		t.Fatalf("shutdown trace not written to sinks")
	}
}

func TestShutdown_ReplaysAsDespawns(t *testing.T) {
	live := newTestWorld(t)
	sink := &memSink{}
	live.AddSink(sink)
	if err := live.Populate(testPlacements()); err != nil {
		t.Fatal(err)
	}
	live.StepN(40)
	live.Shutdown()

	if err := newTestWorld(t).Verify(sink.traces); err != nil {
		t.Fatalf("recording with shutdown diverged: %v", err)
	}
}

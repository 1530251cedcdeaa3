package world

import (
	"sync"
	"time"
)

// WorldMetrics is a point-in-time summary safe to read from any goroutine.
type WorldMetrics struct {
	Tick             uint64         `json:"tick"`
	Mobs             int            `json:"mobs"`
	MobsByKind       map[string]int `json:"mobs_by_kind"`
	RunningGoals     int            `json:"running_goals"`
	Watchers         int            `json:"watchers"`
	StepMS           float64        `json:"step_ms"`
	TransitionsTotal uint64         `json:"transitions_total"`
	FaultsTotal      uint64         `json:"faults_total"`
	DeathsTotal      uint64         `json:"deaths_total"`
}

type metricsBox struct {
	mu sync.Mutex
	m  WorldMetrics
}

func (w *World) Metrics() WorldMetrics {
	w.metrics.mu.Lock()
	defer w.metrics.mu.Unlock()
	m := w.metrics.m
	m.MobsByKind = make(map[string]int, len(w.metrics.m.MobsByKind))
	for k, v := range w.metrics.m.MobsByKind {
		m.MobsByKind[k] = v
	}
	return m
}

func (w *World) recordMetrics(trace TickTrace, took time.Duration) {
	byKind := map[string]int{}
	running := 0
	for _, id := range w.order {
		m := w.mobs[id]
		byKind[m.Kind]++
		running += len(m.Goals.RunningGoals()) + len(m.Targets.RunningGoals())
	}
	faults := 0
	for _, r := range trace.Transitions {
		if r.Faulted() {
			faults++
		}
	}

	w.metrics.mu.Lock()
	defer w.metrics.mu.Unlock()
	cur := &w.metrics.m
	cur.Tick = trace.Tick
	cur.Mobs = len(w.order)
	cur.MobsByKind = byKind
	cur.RunningGoals = running
	cur.Watchers = len(w.watchers)
	cur.StepMS = float64(took.Microseconds()) / 1000
	cur.TransitionsTotal += uint64(len(trace.Transitions))
	cur.FaultsTotal += uint64(faults)
	cur.DeathsTotal += uint64(len(trace.Deaths))
}

package world

import (
	"context"
	"time"

	"mobcraft.ai/internal/sim/terrain"
)

// SpawnRequest asks the running world to spawn a mob on its next tick.
// Reply, if set, receives exactly one result.
type SpawnRequest struct {
	Kind  string
	Pos   terrain.Vec3i
	Reply chan<- SpawnResult
}

type SpawnResult struct {
	ID  string
	Err error
}

func (w *World) SpawnQueue() chan<- SpawnRequest { return w.spawnReq }
func (w *World) DespawnQueue() chan<- string     { return w.despawnReq }
func (w *World) Watch() chan<- WatchRequest      { return w.watch }
func (w *World) Unwatch() chan<- string          { return w.unwatch }

// Run drives Step from a ticker until ctx is done or Stop is called. Requests
// that arrive between ticks are applied at the start of the next tick.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer w.closeWatchers()

	var pendingSpawns []SpawnRequest
	var pendingDespawns []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.spawnReq:
			pendingSpawns = append(pendingSpawns, req)
		case id := <-w.despawnReq:
			pendingDespawns = append(pendingDespawns, id)
		case req := <-w.watch:
			w.handleWatch(req)
		case id := <-w.unwatch:
			w.handleUnwatch(id)
		case <-ticker.C:
			for _, id := range pendingDespawns {
				w.Despawn(id)
			}
			for _, req := range pendingSpawns {
				m, err := w.Spawn(req.Kind, req.Pos)
				if req.Reply == nil {
					if err != nil {
						w.logf("spawn %s: %v", req.Kind, err)
					}
					continue
				}
				res := SpawnResult{Err: err}
				if m != nil {
					res.ID = m.ID
				}
				req.Reply <- res
			}
			w.Step()
			pendingSpawns = pendingSpawns[:0]
			pendingDespawns = pendingDespawns[:0]
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

func (w *World) closeWatchers() {
	for id, wt := range w.watchers {
		close(wt.out)
		delete(w.watchers, id)
	}
}

package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"mobcraft.ai/internal/sim/terrain"
	"mobcraft.ai/internal/sim/world"
)

type spawnBody struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Z    int    `json:"z"`
}

func spawnHandler(w *world.World) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		var body spawnBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Kind == "" {
			http.Error(rw, "expected {\"kind\":..., \"x\":..., \"z\":...}", http.StatusBadRequest)
			return
		}

		reply := make(chan world.SpawnResult, 1)
		req := world.SpawnRequest{Kind: body.Kind, Pos: terrain.Vec3i{X: body.X, Z: body.Z}, Reply: reply}
		select {
		case w.SpawnQueue() <- req:
		case <-r.Context().Done():
			return
		}

		rw.Header().Set("Content-Type", "application/json")
		select {
		case res := <-reply:
			if res.Err != nil {
				rw.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": res.Err.Error()})
				return
			}
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "id": res.ID})
		case <-time.After(5 * time.Second):
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "error": "world busy"})
		}
	}
}

func despawnHandler(w *world.World) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(rw, "missing id", http.StatusBadRequest)
			return
		}
		select {
		case w.DespawnQueue() <- id:
			rw.WriteHeader(http.StatusAccepted)
		case <-time.After(time.Second):
			http.Error(rw, "world busy", http.StatusServiceUnavailable)
		}
	}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

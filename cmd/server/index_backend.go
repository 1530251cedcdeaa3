package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mobcraft.ai/internal/persistence/indexdb"
	"mobcraft.ai/internal/sim/tuning"
	"mobcraft.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.TraceSink
	Close() error
	Sync(ctx context.Context) error
	Stats() indexdb.Stats
	RecordTuning(tune tuning.Tuning) error
}

func openRuntimeIndex(worldDir string, enabled bool) (runtimeIndex, error) {
	if !enabled {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("MC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(worldDir, "index", "goals.sqlite")
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported MC_INDEX_BACKEND: %s", backend)
	}
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "mobcraft.ai/internal/persistence/log"
	"mobcraft.ai/internal/sim/tuning"
	"mobcraft.ai/internal/sim/world"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory")
		worldID    = flag.String("world", "", "world id (default: tuning world_id)")
		goalsDir   = flag.String("goals", "", "dir containing goals-*.jsonl.zst (default: <data>/worlds/<world>/goals)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seed       = flag.Int64("seed", 0, "seed the recording was made with, if overridden")
		mobID      = flag.String("mob", "", "print transitions of this mob")
		faults     = flag.Bool("faults", false, "print faulted goals")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
		verify     = flag.Bool("verify", true, "re-simulate and compare against the recording")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	if *worldID != "" {
		tune.WorldID = *worldID
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	dir := strings.TrimSpace(*goalsDir)
	if dir == "" {
		dir = filepath.Join(*dataDir, "worlds", tune.WorldID, "goals")
	}
	files, err := persistlog.TraceFiles(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list traces:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no trace files found in", dir)
		os.Exit(1)
	}

	var traces []world.TickTrace
	sum := newSummary()
	for _, path := range files {
		err := persistlog.ReadTraces(path, func(t world.TickTrace) error {
			if *toTick != 0 && t.Tick > *toTick {
				return nil
			}
			traces = append(traces, t)
			sum.add(t)
			if *mobID != "" || *faults {
				printMatching(t, *mobID, *faults)
			}
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
	sum.print()

	if !*verify {
		return
	}
	w := world.New(world.Config{
		ID:              tune.WorldID,
		TickRateHz:      tune.TickRateHz,
		Seed:            tune.Seed,
		BoundaryR:       tune.WorldBoundaryR,
		BiomeRegionSize: tune.BiomeRegionSize,
		Scale:           tune.Goals,
	})
	if err := w.Verify(traces); err != nil {
		var mm *world.Mismatch
		if errors.As(err, &mm) {
			fmt.Fprintf(os.Stderr, "replay diverged at tick %d\n", mm.Tick)
			fmt.Fprintf(os.Stderr, "  recorded: spawns=%d transitions=%d despawns=%d deaths=%d\n",
				len(mm.Want.Spawns), len(mm.Want.Transitions), len(mm.Want.Despawns), len(mm.Want.Deaths))
			fmt.Fprintf(os.Stderr, "  replayed: spawns=%d transitions=%d despawns=%d deaths=%d\n",
				len(mm.Got.Spawns), len(mm.Got.Transitions), len(mm.Got.Despawns), len(mm.Got.Deaths))
		} else {
			fmt.Fprintln(os.Stderr, "replay:", err)
		}
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d traces through tick=%d\n", len(traces), w.CurrentTick())
}

func printMatching(t world.TickTrace, mobID string, faults bool) {
	for _, tr := range t.Transitions {
		if mobID != "" && tr.MobID != mobID {
			continue
		}
		if faults && !tr.Faulted() {
			continue
		}
		line := fmt.Sprintf("tick=%d mob=%s %s %s p=%d %s", t.Tick, tr.MobID, tr.Selector, tr.Kind, tr.Priority, tr.Name)
		if tr.Reason != "" {
			line += " reason=" + tr.Reason
		}
		if tr.Error != "" {
			line += " error=" + tr.Error
		}
		fmt.Println(line)
	}
}

type summary struct {
	traces  int
	first   uint64
	last    uint64
	spawns  int
	deaths  int
	byKind  map[string]int
	reasons map[string]int
}

func newSummary() *summary {
	return &summary{byKind: map[string]int{}, reasons: map[string]int{}}
}

func (s *summary) add(t world.TickTrace) {
	if s.traces == 0 {
		s.first = t.Tick
	}
	s.traces++
	s.last = t.Tick
	s.spawns += len(t.Spawns)
	s.deaths += len(t.Deaths)
	for _, tr := range t.Transitions {
		s.byKind[tr.Kind]++
		if tr.Reason != "" {
			s.reasons[tr.Reason]++
		}
	}
}

func (s *summary) print() {
	fmt.Printf("traces=%d ticks=%d..%d spawns=%d deaths=%d\n", s.traces, s.first, s.last, s.spawns, s.deaths)
	for _, k := range sortedKeys(s.byKind) {
		fmt.Printf("  %-6s %d\n", k, s.byKind[k])
	}
	for _, k := range sortedKeys(s.reasons) {
		fmt.Printf("  stop/%-9s %d\n", k, s.reasons[k])
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

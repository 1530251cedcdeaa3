package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mobcraft.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	mobID := fs.String("mob", "", "mob id (transitions)")
	fromTick := fs.Uint64("from_tick", 0, "first tick (deaths)")
	limit := fs.Int("limit", 50, "result limit")
	_ = fs.Parse(args)

	q := "goals"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "goals.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch q {
	case "goals":
		stats, err := idx.GoalStats(ctx)
		if err != nil {
			fail("goal stats", err)
		}
		for _, st := range stats {
			fmt.Printf("%-28s starts=%d stops=%d faults=%d\n", st.Name, st.Starts, st.Stops, st.Faults)
		}
	case "reasons":
		reasons, err := idx.StopReasons(ctx)
		if err != nil {
			fail("stop reasons", err)
		}
		keys := make([]string, 0, len(reasons))
		for k := range reasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-10s %d\n", k, reasons[k])
		}
	case "transitions":
		if strings.TrimSpace(*mobID) == "" {
			fmt.Fprintln(os.Stderr, "missing -mob")
			os.Exit(2)
		}
		rows, err := idx.TransitionsForMob(ctx, *mobID, *limit)
		if err != nil {
			fail("transitions", err)
		}
		printJSON(rows)
	case "deaths":
		ids, err := idx.Deaths(ctx, *fromTick)
		if err != nil {
			fail("deaths", err)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	case "tuning":
		d, ok, err := idx.TuningDigest(ctx)
		if err != nil {
			fail("tuning", err)
		}
		if !ok {
			fmt.Println("no tuning recorded")
			return
		}
		fmt.Println(d)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(want goals|reasons|transitions|deaths|tuning)")
		os.Exit(2)
	}
}

func fail(what string, err error) {
	fmt.Fprintln(os.Stderr, what+":", err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

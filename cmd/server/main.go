package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "mobcraft.ai/internal/persistence/log"
	"mobcraft.ai/internal/sim/terrain"
	"mobcraft.ai/internal/sim/tuning"
	"mobcraft.ai/internal/sim/world"
	"mobcraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		seed       = flag.Int64("seed", 0, "override the tuning seed (0 keeps it)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite goal index")
		disableLog = flag.Bool("disable_trace_log", false, "disable the zstd goal trace log")
		checkFlags = flag.Bool("check_flags", false, "report goals whose flags change while running")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	if *checkFlags {
		tune.Debug.CheckFlags = true
	}

	worldDir := filepath.Join(*dataDir, "worlds", tune.WorldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	w := world.New(worldConfig(tune, logger))

	// Optional read-model index (does not affect sim determinism).
	idx, err := openRuntimeIndex(worldDir, tune.Trace.Index && !*disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.RecordTuning(tune); err != nil {
			logger.Printf("index backend: record tuning: %v", err)
		}
		w.AddSink(idx)
	}
	if tune.Trace.Log && !*disableLog {
		traceLog := persistlog.NewTraceLogger(worldDir)
		defer traceLog.Close()
		w.AddSink(traceLog)
	}

	if err := w.Populate(placements(tune)); err != nil {
		logger.Fatalf("populate: %v", err)
	}
	logger.Printf("world=%s seed=%d mobs=%d eval_interval=%d", w.ID(), tune.Seed, len(w.Mobs()), tune.Goals.EvalInterval)

	ctx, cancel := signalContext()
	defer cancel()

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w.ID(), w.Metrics(), idx)
	})

	if envBool("MC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID string             `json:"world_id"`
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				WorldID: w.ID(),
				Tick:    w.CurrentTick(),
				Metrics: w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/spawn", spawnHandler(w))
		mux.HandleFunc("/admin/v1/despawn", despawnHandler(w))
	} else {
		logger.Printf("admin endpoints disabled (MC_ENABLE_ADMIN_HTTP=false)")
	}
	if envBool("MC_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/goals/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}
	<-worldDone
	// Halt every goal and flush the final trace before the deferred sink
	// closes run.
	w.Shutdown()
}

func worldConfig(tune tuning.Tuning, logger *log.Logger) world.Config {
	return world.Config{
		ID:              tune.WorldID,
		TickRateHz:      tune.TickRateHz,
		Seed:            tune.Seed,
		BoundaryR:       tune.WorldBoundaryR,
		BiomeRegionSize: tune.BiomeRegionSize,
		Scale:           tune.Goals,
		CheckFlags:      tune.Debug.CheckFlags,
		Logger:          logger,
	}
}

func placements(tune tuning.Tuning) []world.Placement {
	out := make([]world.Placement, 0, len(tune.Spawns))
	for _, s := range tune.Spawns {
		out = append(out, world.Placement{
			Kind:   s.Kind,
			Count:  s.Count,
			Center: terrain.Vec3i{X: s.X, Z: s.Z},
			Spread: s.Spread,
		})
	}
	return out
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func writeMetrics(rw http.ResponseWriter, worldID string, m world.WorldMetrics, idx runtimeIndex) {
	fmt.Fprintf(rw, "# HELP mobcraft_world_tick Current world tick.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_world_tick gauge\n")
	fmt.Fprintf(rw, "mobcraft_world_tick{world=%q} %d\n", worldID, m.Tick)

	fmt.Fprintf(rw, "# HELP mobcraft_world_mobs Live mobs by kind.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_world_mobs gauge\n")
	for _, kind := range sortedKeys(m.MobsByKind) {
		fmt.Fprintf(rw, "mobcraft_world_mobs{world=%q,kind=%q} %d\n", worldID, kind, m.MobsByKind[kind])
	}

	fmt.Fprintf(rw, "# HELP mobcraft_running_goals Goals running across all selectors.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_running_goals gauge\n")
	fmt.Fprintf(rw, "mobcraft_running_goals{world=%q} %d\n", worldID, m.RunningGoals)

	fmt.Fprintf(rw, "# HELP mobcraft_goal_transitions_total Goal start/stop/fault transitions.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_goal_transitions_total counter\n")
	fmt.Fprintf(rw, "mobcraft_goal_transitions_total{world=%q} %d\n", worldID, m.TransitionsTotal)

	fmt.Fprintf(rw, "# HELP mobcraft_goal_faults_total Goals quarantined after a panic.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_goal_faults_total counter\n")
	fmt.Fprintf(rw, "mobcraft_goal_faults_total{world=%q} %d\n", worldID, m.FaultsTotal)

	fmt.Fprintf(rw, "# HELP mobcraft_deaths_total Mobs that died.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_deaths_total counter\n")
	fmt.Fprintf(rw, "mobcraft_deaths_total{world=%q} %d\n", worldID, m.DeathsTotal)

	fmt.Fprintf(rw, "# HELP mobcraft_world_step_ms Last tick step duration in milliseconds.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_world_step_ms gauge\n")
	fmt.Fprintf(rw, "mobcraft_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)

	fmt.Fprintf(rw, "# HELP mobcraft_debug_watchers Connected goal stream sessions.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_debug_watchers gauge\n")
	fmt.Fprintf(rw, "mobcraft_debug_watchers{world=%q} %d\n", worldID, m.Watchers)

	if idx == nil {
		return
	}
	st := idx.Stats()
	fmt.Fprintf(rw, "# HELP mobcraft_index_queue_depth Goal index writer backlog.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_index_queue_depth gauge\n")
	fmt.Fprintf(rw, "mobcraft_index_queue_depth %d\n", st.QueueDepth)
	fmt.Fprintf(rw, "# HELP mobcraft_index_dropped_total Traces dropped because the index fell behind.\n")
	fmt.Fprintf(rw, "# TYPE mobcraft_index_dropped_total counter\n")
	fmt.Fprintf(rw, "mobcraft_index_dropped_total %d\n", st.DropTraceTotal)
}

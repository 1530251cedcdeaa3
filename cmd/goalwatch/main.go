package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"mobcraft.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/goals/ws", "ws url")
		mobs  = flag.String("mobs", "", "comma-separated mob ids to watch (optional)")
		kinds = flag.String("kinds", "", "comma-separated mob kinds to watch (optional)")
		quiet = flag.Bool("transitions_only", false, "only print frames carrying transitions")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	watch := protocol.WatchMsg{
		Type:            protocol.TypeWatch,
		ProtocolVersion: protocol.Version,
		MobIDs:          splitList(*mobs),
		Kinds:           splitList(*kinds),
	}
	if err := conn.WriteJSON(watch); err != nil {
		logger.Fatalf("send WATCH: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s world=%s tick=%d tick_rate=%d eval_interval=%d", w.SessionID, w.WorldID, w.Tick, w.TickRateHz, w.EvalInterval)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", e.Code, e.Message)

		case protocol.TypeGoals:
			var g protocol.GoalsMsg
			if err := json.Unmarshal(msg, &g); err != nil {
				continue
			}
			handleGoals(logger, &g, *quiet)
		}
	}
}

func handleGoals(logger *log.Logger, g *protocol.GoalsMsg, transitionsOnly bool) {
	for _, tr := range g.Transitions {
		line := tr.MobID + " " + tr.Selector + " " + tr.Kind + " " + tr.Name
		if tr.Reason != "" {
			line += " (" + tr.Reason + ")"
		}
		if tr.Error != "" {
			line += " error=" + tr.Error
		}
		logger.Printf("tick=%d %s", g.Tick, line)
	}
	if transitionsOnly {
		return
	}
	for _, m := range g.Mobs {
		names := make([]string, 0, len(m.Goals)+len(m.Targets))
		for _, rg := range m.Goals {
			names = append(names, rg.Name)
		}
		for _, rg := range m.Targets {
			names = append(names, "target:"+rg.Name)
		}
		logger.Printf("tick=%d %s hp=%d pos=%v running=[%s]", g.Tick, m.ID, m.HP, m.Pos, strings.Join(names, " "))
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package ws streams per-tick goal frames to debug clients over websockets.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"mobcraft.ai/internal/protocol"
	"mobcraft.ai/internal/sim/world"
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
	sessions atomic.Uint64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	s := &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		s.logf("watch session %s from %s", sessionID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "world stopped"), time.Now().Add(time.Second))
						cancel()
						// Unblocks the reader loop.
						_ = conn.Close()
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						_ = conn.Close()
						return
					}
				}
			}
		}()

		// Reader loop: a later WATCH replaces the session's filters.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			watch, ok := decodeWatch(msg)
			if !ok {
				continue
			}
			if !s.send(ctx, world.WatchRequest{SessionID: sessionID, Out: out, MobIDs: watch.MobIDs, Kinds: watch.Kinds}) {
				break
			}
		}

		// Cleanup.
		select {
		case s.world.Unwatch() <- sessionID:
		case <-time.After(time.Second):
		}
		s.logf("watch session %s closed", sessionID)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeWatch {
		s.reject(conn, protocol.ErrProtoBadRequest, "expected WATCH")
		return "", nil
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(conn, protocol.ErrProtoVersion, "bad protocol_version")
		return "", nil
	}
	watch, ok := decodeWatch(msg)
	if !ok {
		s.reject(conn, protocol.ErrProtoBadRequest, "malformed WATCH")
		return "", nil
	}

	sessionID = fmt.Sprintf("W%d", s.sessions.Add(1))
	out = make(chan []byte, 8)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         s.world.ID(),
		TickRateHz:      s.world.TickRateHz(),
		EvalInterval:    s.world.Config().Scale.Interval(),
		Tick:            s.world.CurrentTick(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	if !s.send(context.Background(), world.WatchRequest{SessionID: sessionID, Out: out, MobIDs: watch.MobIDs, Kinds: watch.Kinds}) {
		s.reject(conn, protocol.ErrWorldBusy, "world not accepting watchers")
		return "", nil
	}
	return sessionID, out
}

func (s *Server) send(ctx context.Context, req world.WatchRequest) bool {
	select {
	case s.world.Watch() <- req:
		return true
	case <-ctx.Done():
		return false
	case <-time.After(5 * time.Second):
		return false
	}
}

func decodeWatch(msg []byte) (protocol.WatchMsg, bool) {
	var watch protocol.WatchMsg
	if err := json.Unmarshal(msg, &watch); err != nil {
		return watch, false
	}
	if watch.Type != protocol.TypeWatch || watch.ProtocolVersion != protocol.Version {
		return watch, false
	}
	return watch, true
}

func (s *Server) reject(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         message,
	})
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, message), time.Now().Add(time.Second))
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/youmna-rabie/incident-relay/internal/dashboard"
)

const (
	socketWriteWait  = 10 * time.Second
	socketMountRetry = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type socketClientMsg struct {
	Kind string `json:"kind"`
}

// socketSession serializes frames to one dashboard connection.
type socketSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *socketSession) send(frame map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	return s.conn.WriteJSON(frame)
}

func changeFrame(c dashboard.Change) map[string]any {
	switch c.Kind {
	case dashboard.ChangeIncident:
		card := dashboard.Render(c.Event)
		return map[string]any{"kind": "incident", "event": c.Event, "card": card, "alert": c.Alert}
	case dashboard.ChangeAlert:
		return map[string]any{"kind": "alert", "active": c.Alert}
	default:
		return map[string]any{"kind": "connection", "connected": c.Connected}
	}
}

// handleDashboardSocket serves GET /api/dashboard/ws. Each connection gets
// its own dashboard state and broker subscription, released when the socket
// closes.
func (s *Server) handleDashboardSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &socketSession{conn: conn}
	sub := dashboard.NewSubscriber(s.subscriber, dashboard.NewState(),
		dashboard.WithLogger(s.logger),
		dashboard.WithOnChange(func(c dashboard.Change) {
			if err := sess.send(changeFrame(c)); err != nil {
				// Unblocks the read loop below, which unmounts.
				conn.Close()
			}
		}),
	)
	defer sub.Unmount()

	if err := sess.send(map[string]any{"kind": "connection", "connected": false}); err != nil {
		return
	}
	go s.mountDashboard(ctx, sub)

	// Read loop: dismissals from the page.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg socketClientMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Kind {
		case "dismiss":
			sub.Dismiss()
		}
	}
}

// mountDashboard mounts sub, retrying while the broker is unreachable.
func (s *Server) mountDashboard(ctx context.Context, sub *dashboard.Subscriber) {
	for {
		err := sub.Mount(ctx)
		if err == nil {
			return
		}
		s.logger.Warn("dashboard subscribe failed", "error", err)
		select {
		case <-time.After(socketMountRetry):
		case <-ctx.Done():
			return
		}
	}
}

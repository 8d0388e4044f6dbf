package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"FeedWatcher/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The control API is same-host by deployment; origin checks are left
	// to the reverse proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleStream upgrades to a websocket and forwards bus events as JSON
// frames. Each viewer gets an independent buffered subscription; a slow
// viewer drops its own events without stalling the pipeline.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	events, cancel := s.bus.Subscribe()
	defer cancel()
	defer conn.Close()

	// Reader goroutine only detects close; viewers never send data.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("stream viewer connected", "remote", r.RemoteAddr)
	if err := s.writeEvent(conn, s.initialStatus()); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := s.writeEvent(conn, event); err != nil {
				s.logger.Info("stream viewer disconnected", "remote", r.RemoteAddr)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, event domain.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}

// initialStatus tells a fresh viewer whether the pipeline is idle or held
// by an earlier rate limit.
func (s *Server) initialStatus() domain.Event {
	if limited, reason := s.pipeline.RateLimited(); limited {
		return domain.Event{
			Type:   domain.EventStatus,
			Status: domain.StatusRateLimited,
			Reason: reason,
		}
	}
	return domain.Event{
		Type:   domain.EventStatus,
		Status: domain.StatusIdle,
		Reason: "Connected.",
	}
}

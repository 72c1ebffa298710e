package server

import (
	"net/http"
)

// handleMonitor streams live call events to an operator websocket client.
// Events are fire-and-forget JSON frames; a slow or gone client is dropped.
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		http.Error(w, "monitoring disabled", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("monitor upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, cancel := s.events.Subscribe()
	defer cancel()

	// Reader goroutine: the client sends nothing we care about, but reading
	// is how websocket close frames surface.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

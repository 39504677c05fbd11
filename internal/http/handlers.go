package http

import (
	"context"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	Respond().JSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			Respond().Status(http.StatusServiceUnavailable).JSON(w, map[string]string{"status": "unavailable"})
			return
		}
	}
	Respond().JSON(w, map[string]string{"status": "ready"})
}

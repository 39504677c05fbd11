package http

import "net/http"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	d, err := s.dashboard.Overview(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	Respond().JSON(w, d)
}

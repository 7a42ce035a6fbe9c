package api

import "net/http"

type healthResponse struct {
	Status   string `json:"status"`
	Passages int    `json:"passages,omitempty"`
}

// handleHealth reports liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReady reports readiness: the service is not useful until the
// knowledge index holds passages.
func (s *Server) handleReady(passages PassageCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		count := passages.Count()
		if count == 0 {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "index empty"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ready", Passages: count})
	}
}

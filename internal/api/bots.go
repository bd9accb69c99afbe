package api

import "net/http"

// cleanupResponse is the JSON response for POST /v1/bots/cleanup.
type cleanupResponse struct {
	Removed int `json:"removed"`
}

// handleGlobalStatus returns every tracked bot plus port usage statistics,
// reconciled against the backend first.
func (s *Server) handleGlobalStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.orch.Status(r.Context()))
}

// handleCleanup prunes terminal registry entries whose backend resource is
// confirmed gone and reports how many were removed.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed := s.orch.Cleanup(r.Context())
	s.writeJSON(w, http.StatusOK, cleanupResponse{Removed: removed})
}

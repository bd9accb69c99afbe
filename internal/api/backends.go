package api

import "net/http"

func (s *Server) handleListBackends(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backends.List())
}

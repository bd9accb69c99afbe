package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ownerKey contextKey = "owner"

// authMiddleware resolves the bearer token to an owner id and stores it in
// the request context. Every data-plane handler reads the owner from there,
// so no request reaches a handler without an identity.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		owner, err := s.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ownerKey, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ownerFrom returns the authenticated owner id set by authMiddleware.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

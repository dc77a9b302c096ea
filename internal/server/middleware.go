package server

import (
	"net/http"
)

// APIKeyHeader is the request header carrying the presented credential.
const APIKeyHeader = "X-API-Key"

// authenticated wraps a handler behind the credential gate: the presented
// token is validated before the guarded operation runs, so a rejected
// request has no side effects.
func (s *Server) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(APIKeyHeader)
		if token == "" || !s.cfg.Validator.Validate(r.Context(), token) {
			s.logger.Debugf("Rejected request to %s: invalid credential", r.URL.Path)
			writeError(w, http.StatusForbidden, "Invalid or expired API key")
			return
		}

		next(w, r)
	})
}

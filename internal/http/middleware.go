package http

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// requireUser authenticates the session token and checks the user still
// exists. The user's ID is stored in the request context.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := auth.TokenFromRequest(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized: No token provided")
			return
		}

		userID, err := s.tokens.Parse(raw)
		if err != nil {
			s.logger.WithComponent(applog.ComponentAuth).DebugContext(r.Context(), "Token rejected",
				applog.FieldError, err)
			writeError(w, http.StatusUnauthorized, "Unauthorized: Invalid token")
			return
		}

		if _, err := s.users.Get(r.Context(), userID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Unauthorized: User not found")
				return
			}
			writeServiceError(w, r, err, "User not found")
			return
		}

		next(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	}
}

// requireInternalKey guards service-to-service routes.
func (s *Server) requireInternalKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(HeaderInternalKey)
		if key == "" || s.internalKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.internalKey)) != 1 {
			s.logger.WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Internal key rejected",
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.securityDetector.ExtractClientIP(r))
			writeError(w, http.StatusForbidden, "Forbidden: Invalid internal key")
			return
		}
		next(w, r)
	}
}

// currentUser returns the authenticated user's ID. Only valid behind
// requireUser.
func currentUser(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

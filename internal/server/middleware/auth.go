package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/auth"
)

const (
	problemUnauthorized = `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`
	problemForbidden    = `{"title":"Forbidden","status":403,"detail":"valid team required"}`
	problemRateLimited  = `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`
)

// Auth accepts an access token from the Authorization header or, for
// websocket upgrades that cannot set headers, the access_token query
// parameter.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" && isWebsocketUpgrade(r) {
				tok = r.URL.Query().Get("access_token")
			}
			if tok == "" {
				writeProblem(w, http.StatusUnauthorized, problemUnauthorized)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tok)
			if err != nil || claims.TokenType != auth.TokenTypeAccess {
				writeProblem(w, http.StatusUnauthorized, problemUnauthorized)
				return
			}

			teamID, userID, err := claims.IDs()
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, problemUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), teamID, userID)))
		})
	}
}

// RequireTeam rejects requests whose principal carries no team.
func RequireTeam() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid, ok := TeamIDFromContext(r.Context())
			if !ok || tid == uuid.Nil {
				writeProblem(w, http.StatusForbidden, problemForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func writeProblem(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/problem"
)

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	Parse(token string) (int64, error)
}

// UserChecker confirms the token's user still exists.
type UserChecker func(userID int64) (bool, error)

// RequireAuth validates a bearer token and populates AuthContext. Browsers
// cannot set headers on websocket upgrades, so the access_token query
// parameter is accepted as a fallback.
func RequireAuth(tokens TokenParser, userExists UserChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "Not authenticated")
				return
			}

			userID, err := tokens.Parse(raw)
			if err != nil {
				unauthorized(w, "Could not validate credentials")
				return
			}
			if userExists != nil {
				ok, err := userExists(userID)
				if err != nil {
					problem.Write(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				if !ok {
					unauthorized(w, "Could not validate credentials")
					return
				}
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	problem.Write(w, http.StatusUnauthorized, detail)
}

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"autopeer/pkg/auth"
)

const tokenCookieName = "autopeer_token"

type claimsKey struct{}

// extractToken reads a bearer token from the Authorization header, falling
// back to the autopeer_token cookie.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(tokenCookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireAuth parses the caller's token and stores its claims in the
// request context, rejecting the request with 401 if absent or invalid.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, *auth.Claims)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		claims, err := auth.Parse(token, s.JWTSecret)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)), claims)
	}
}

// setTokenCookie issues the bearer token as an HttpOnly, Secure,
// SameSite=Strict cookie for every domain the server is configured to
// serve cookies under, in addition to the token appearing in the JSON body.
func (s *Server) setTokenCookie(w http.ResponseWriter, token string) {
	for _, domain := range s.CookieDomains {
		http.SetCookie(w, &http.Cookie{
			Name:     tokenCookieName,
			Value:    token,
			Domain:   domain,
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		})
	}
}

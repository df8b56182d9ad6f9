package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ethiapath/bagcamp/internal/api/presenter"
	"github.com/ethiapath/bagcamp/internal/core"
)

const principalKey = "principal"

// SessionCookieName is where the web app keeps its session token.
const SessionCookieName = "session_token"

// PrincipalCtx retrieves the authenticated principal from the context,
// or nil when the request was not authenticated.
func PrincipalCtx(ctx context.Context) *core.Principal {
	p, ok := ctx.Value(principalKey).(*core.Principal)
	if !ok {
		return nil
	}
	return p
}

// SessionAuth authenticates the caller from a session JWT, taken from the
// Authorization header or the session cookie. The session token is a
// different credential than the download token: it proves who the caller
// is, not what they may download.
func SessionAuth(sessionSecret []byte) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				presenter.Error(w, r, "unauthorized: please log in", http.StatusUnauthorized)
				return
			}

			parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method")
				}
				return sessionSecret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !parsed.Valid {
				presenter.Error(w, r, "invalid session token", http.StatusUnauthorized)
				return
			}

			subject, err := parsed.Claims.GetSubject()
			if err != nil || subject == "" {
				presenter.Error(w, r, "invalid session claims", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, &core.Principal{ID: subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

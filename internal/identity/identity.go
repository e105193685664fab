// Package identity provides anonymous per-browser session identity.
package identity

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/tradedesk/internal/store"
)

const (
	SessionCookieName   = "tradedesk_session"
	sessionCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

// SessionIDFromContext extracts the browser session ID from the request
// context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID returns a context carrying sessionID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func isValidSessionID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}

func setSessionCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateSessionID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
		setSessionCookie(w, c.Value, isDev)
		return c.Value
	}
	id := uuid.NewString()
	setSessionCookie(w, id, isDev)
	return id
}

// Middleware assigns every browser a session id cookie and records its
// activity so idle transcripts can be swept.
func Middleware(repo store.Repository, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := getOrCreateSessionID(w, r, isDev)

			if err := repo.TouchSession(r.Context(), sessionID, time.Now()); err != nil {
				slog.Warn("failed to record session activity", "session_id", sessionID, "error", err)
			}

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

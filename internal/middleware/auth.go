package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/omega-realm/scruffy/internal/auth"
	"github.com/omega-realm/scruffy/internal/models"
)

// SessionCookie carries the signed session token.
const SessionCookie = "scruffy_session"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const userIDKey contextKey = "user_id"

// Gate answers whether a request carries a valid session.
type Gate struct {
	issuer *auth.Issuer
}

func NewGate(issuer *auth.Issuer) *Gate {
	return &Gate{issuer: issuer}
}

// AuthenticatedUserID returns the user id of the request's session. The
// session cookie is preferred; an "Authorization: Bearer <token>" header is
// accepted as a fallback.
func (g *Gate) AuthenticatedUserID(r *http.Request) (int, bool) {
	token := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		token = c.Value
	} else if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = strings.TrimSpace(parts[1])
		}
	}
	if token == "" {
		return 0, false
	}

	claims, err := g.issuer.Validate(token)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

// Remember starts a session for user by setting the session cookie.
func (g *Gate) Remember(w http.ResponseWriter, user models.User) error {
	token, err := g.issuer.Issue(user.ID, user.Username)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.issuer.TTL() / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Forget expires the session cookie.
func (g *Gate) Forget(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireSession rejects requests without a valid session and stores the
// session's user id in the request context.
func (g *Gate) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := g.AuthenticatedUserID(r)
		if !ok {
			writeError(w, "not authorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user id from the request context
func UserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok
}

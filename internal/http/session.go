package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"taxdash/internal/store"
)

// SessionCookie names the cookie holding the visitor's form key.
const SessionCookie = "taxdash_session"

const sessionMaxAge = 365 * 24 * time.Hour

// sessionKey returns the form key for r, issuing a new cookie when the
// request has none or carries an unusable one.
func (s *Server) sessionKey(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && store.ValidateKey(c.Value) == nil {
		return c.Value
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   int(sessionMaxAge / time.Second),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

// existingSessionKey never issues a cookie; ok is false without one.
func existingSessionKey(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || store.ValidateKey(c.Value) != nil {
		return "", false
	}
	return c.Value, true
}

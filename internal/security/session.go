package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	// SessionCookieName is the browser cookie holding the signed session reference
	SessionCookieName = "moneynest-session"

	sessionIDKey = "sid"
)

// GenerateSessionID creates a new UUID for session identification
func GenerateSessionID() string {
	return uuid.New().String()
}

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// SessionCookies writes and reads the signed cookie that references a
// server-side session row. The cookie carries only the session id.
type SessionCookies struct {
	store *sessions.CookieStore
}

// NewSessionCookies creates a codec whose cookies are signed with key and
// rejected once older than maxAge
func NewSessionCookies(key []byte, maxAge time.Duration) *SessionCookies {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(int(maxAge.Seconds()))
	return &SessionCookies{store: store}
}

// Write sets the session cookie for sessionID, expiring at expires
func (sc *SessionCookies) Write(w http.ResponseWriter, r *http.Request, sessionID string, expires time.Time) error {
	sess, _ := sc.store.New(r, SessionCookieName)
	sess.Values[sessionIDKey] = sessionID
	sess.Options = sc.options(r, int(time.Until(expires).Seconds()))
	return sess.Save(r, w)
}

// Read returns the session id referenced by the request's cookie.
// A missing, tampered or undecodable cookie yields ok == false.
func (sc *SessionCookies) Read(r *http.Request) (string, bool) {
	sess, err := sc.store.Get(r, SessionCookieName)
	if err != nil || sess.IsNew {
		return "", false
	}
	id, ok := sess.Values[sessionIDKey].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Clear expires the session cookie
func (sc *SessionCookies) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sc.store.New(r, SessionCookieName)
	sess.Options = sc.options(r, -1)
	return sess.Save(r, w)
}

func (sc *SessionCookies) options(r *http.Request, maxAge int) *sessions.Options {
	opts := *sc.store.Options
	opts.MaxAge = maxAge
	opts.Secure = IsSecureRequest(r)
	return &opts
}

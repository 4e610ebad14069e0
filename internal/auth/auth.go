// Package auth resolves the calling user of a request. Strategies are tried
// in a fixed order and the first one that yields a principal wins.
package auth

import (
	"context"
	"net/http"
	"strings"

	"moneynest/internal/models"
	"moneynest/internal/security"
)

// Method names the strategy that authenticated a request
type Method string

const (
	MethodSession Method = "session"
	MethodBearer  Method = "bearer"
)

// Principal is the authenticated identity behind a request
type Principal struct {
	UserID int64
	Email  string
	Name   string
	Method Method
	// SessionID is set for session-authenticated requests
	SessionID string
}

// Strategy resolves a principal from one kind of credential
type Strategy interface {
	Resolve(r *http.Request) (*Principal, bool)
}

// SessionValidator looks up the user of a server-side session
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (*models.User, error)
}

// TokenValidator verifies a bearer token and returns its user
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, error)
}

// SessionStrategy authenticates web clients by their signed session cookie
type SessionStrategy struct {
	cookies  *security.SessionCookies
	sessions SessionValidator
}

// NewSessionStrategy creates a cookie session strategy
func NewSessionStrategy(cookies *security.SessionCookies, sessions SessionValidator) *SessionStrategy {
	return &SessionStrategy{cookies: cookies, sessions: sessions}
}

// Resolve implements Strategy. A tampered, unknown or expired session yields no principal.
func (s *SessionStrategy) Resolve(r *http.Request) (*Principal, bool) {
	sessionID, ok := s.cookies.Read(r)
	if !ok {
		return nil, false
	}
	user, err := s.sessions.ValidateSession(r.Context(), sessionID)
	if err != nil {
		return nil, false
	}
	return &Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Method:    MethodSession,
		SessionID: sessionID,
	}, true
}

// BearerStrategy authenticates mobile clients by an Authorization: Bearer token
type BearerStrategy struct {
	tokens TokenValidator
}

// NewBearerStrategy creates a bearer token strategy
func NewBearerStrategy(tokens TokenValidator) *BearerStrategy {
	return &BearerStrategy{tokens: tokens}
}

// BearerToken extracts the token from an Authorization header
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Resolve implements Strategy
func (s *BearerStrategy) Resolve(r *http.Request) (*Principal, bool) {
	token, ok := BearerToken(r)
	if !ok {
		return nil, false
	}
	user, err := s.tokens.ValidateToken(r.Context(), token)
	if err != nil {
		return nil, false
	}
	return &Principal{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Method: MethodBearer,
	}, true
}

// Resolver tries its strategies in order
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a resolver over strategies, tried in the given order
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Resolve returns the first principal any strategy yields
func (res *Resolver) Resolve(r *http.Request) (*Principal, bool) {
	for _, s := range res.strategies {
		if p, ok := s.Resolve(r); ok {
			return p, true
		}
	}
	return nil, false
}

type contextKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok && p != nil
}

package handlers

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"moneynest/internal/auth"
	"moneynest/internal/security"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	responder
	resolver    *auth.Resolver
	csrf        *security.CSRFGenerator
	authLimiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(resolver *auth.Resolver, csrf *security.CSRFGenerator, authLimiter *security.RateLimiter, logger *zap.Logger) *Middleware {
	return &Middleware{
		responder:   responder{logger: logger},
		resolver:    resolver,
		csrf:        csrf,
		authLimiter: authLimiter,
	}
}

// RequireAuth resolves the caller and stores the principal in the request context
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := m.resolver.Resolve(r)
		if !ok {
			respondJSON(w, http.StatusUnauthorized, errorBody{Error: ErrUnauthorized})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

// RequireCSRF checks the CSRF header on unsafe requests authenticated by a
// session cookie. Bearer clients cannot be driven by a third-party page and skip it.
func (m *Middleware) RequireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := auth.FromContext(r.Context())
		if ok && principal.Method == auth.MethodSession && !isSafeMethod(r.Method) {
			if !m.csrf.ValidateToken(principal.SessionID, r.Header.Get(security.CSRFHeader)) {
				m.logger.Debug("csrf token rejected", zap.String("method", r.Method), zap.String("path", r.URL.Path))
				respondJSON(w, http.StatusForbidden, errorBody{Error: ErrInvalidCSRFToken})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit throttles requests per client IP
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.authLimiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, errorBody{Error: ErrTooManyRequests})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Logging returns middleware that logs each request with its status and duration
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}

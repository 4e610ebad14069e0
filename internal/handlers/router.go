package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers groups everything the router dispatches to
type Handlers struct {
	Middleware     *Middleware
	Auth           *AuthHandler
	Families       *FamilyHandler
	PersonalLedger *LedgerHandler
	FamilyLedger   *LedgerHandler
	Limits         *LimitHandler
	DB             Pinger
	Logger         *zap.Logger
	// TrustProxy mounts chi's RealIP so forwarded headers set RemoteAddr
	TrustProxy bool
}

// NewRouter wires every route of the API
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	if h.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.RequestID)
	r.Use(Logging(h.Logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.health)

	m := h.Middleware

	r.Route("/auth", func(r chi.Router) {
		r.With(m.RateLimit).Post("/register", h.Auth.Register)
		r.With(m.RateLimit).Post("/login", h.Auth.Login)
		r.With(m.RateLimit).Post("/mobile", h.Auth.Mobile)
		r.Get("/google/start", h.Auth.StartGoogle)
		r.Get("/google/callback", h.Auth.GoogleCallback)

		r.Group(func(r chi.Router) {
			r.Use(m.RequireAuth, m.RequireCSRF)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/me", h.Auth.Me)
			r.Get("/csrf", h.Auth.CSRFToken)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(m.RequireAuth, m.RequireCSRF)

		ledgerRoutes(r, "/transactions", "/categories", "/stats", h.PersonalLedger)
		ledgerRoutes(r, "/family-transactions", "/family-categories", "/family-stats", h.FamilyLedger)

		r.Route("/families", func(r chi.Router) {
			r.Get("/", h.Families.List)
			r.Post("/", h.Families.Create)
			r.Post("/join", h.Families.Join)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Families.Get)
				r.Patch("/", h.Families.Update)
				r.Delete("/", h.Families.Delete)
				r.Post("/leave", h.Families.Leave)
				r.Patch("/members", h.Families.ChangeRole)
				r.Delete("/members", h.Families.RemoveMember)
				r.Post("/invite-code", h.Families.RegenerateInviteCode)
				r.Post("/invite-email", h.Families.SendInviteEmail)
				r.Get("/invitations", h.Families.ListInvitations)
			})
		})

		r.Route("/spending-limits", func(r chi.Router) {
			r.Get("/", h.Limits.List)
			r.Post("/", h.Limits.Create)
			r.Delete("/{id}", h.Limits.Delete)
		})
	})

	return r
}

func ledgerRoutes(r chi.Router, transactions, categories, stats string, h *LedgerHandler) {
	r.Route(transactions, func(r chi.Router) {
		r.Get("/", h.ListTransactions)
		r.Post("/", h.CreateTransaction)
		r.Get("/{id}", h.GetTransaction)
		r.Patch("/{id}", h.UpdateTransaction)
		r.Delete("/{id}", h.DeleteTransaction)
	})
	r.Route(categories, func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Patch("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
	r.Get(stats, h.Stats)
}

func (h Handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		h.Logger.Error("health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

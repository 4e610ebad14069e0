package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"moneynest/internal/auth"
	"moneynest/internal/models"
	"moneynest/internal/security"
	"moneynest/internal/service"
)

// familyJoiner joins a user to a family by invite code
type familyJoiner interface {
	JoinFamily(ctx context.Context, userID int64, inviteCode string) (*models.Family, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	responder
	authService *service.AuthService
	families    familyJoiner
	cookies     *security.SessionCookies
	csrf        *security.CSRFGenerator

	google               *OAuthProvider
	oauthRedirectBaseURL string
	appBaseURL           string
}

// NewAuthHandler creates a new auth handler. google may be nil when Google sign-in is not configured.
func NewAuthHandler(
	authService *service.AuthService,
	families familyJoiner,
	cookies *security.SessionCookies,
	csrf *security.CSRFGenerator,
	google *OAuthProvider,
	oauthRedirectBaseURL, appBaseURL string,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		responder:            responder{logger: logger},
		authService:          authService,
		families:             families,
		cookies:              cookies,
		csrf:                 csrf,
		google:               google,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		appBaseURL:           appBaseURL,
	}
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User      *models.User `json:"user"`
	CSRFToken string       `json:"csrfToken,omitempty"`
}

type tokenResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
}

// Register creates an account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.respondServiceError(w, err, "failed to register user")
		return
	}
	respondJSON(w, http.StatusOK, userResponse{User: user})
}

// Login starts a cookie session for web clients
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	session, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, err, "failed to log in")
		return
	}

	token, err := h.startSession(w, r, session)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to write session cookie", err)
		return
	}
	respondJSON(w, http.StatusOK, userResponse{User: user, CSRFToken: token})
}

// startSession writes the session cookie and returns the CSRF token bound to it
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, session *models.Session) (string, error) {
	if err := h.cookies.Write(w, r, session.ID, session.ExpiresAt); err != nil {
		return "", err
	}
	return h.csrf.GenerateToken(session.ID)
}

// Mobile issues a bearer token for mobile clients
func (h *AuthHandler) Mobile(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	token, user, err := h.authService.CreateToken(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, err, "failed to issue token")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{User: user, AccessToken: token, TokenType: "Bearer"})
}

// Logout ends a cookie session. Bearer tokens are stateless and simply expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p.Method == auth.MethodSession {
		if err := h.authService.Logout(r.Context(), p.SessionID); err != nil {
			h.respondServiceError(w, err, "failed to delete session")
			return
		}
		if err := h.cookies.Clear(w, r); err != nil {
			h.logger.Warn("failed to clear session cookie", zap.Error(err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUser(r.Context(), principal(r).UserID)
	if err != nil {
		h.respondServiceError(w, err, "failed to load current user")
		return
	}
	respondJSON(w, http.StatusOK, userResponse{User: user})
}

// CSRFToken returns the token cookie-session clients send on unsafe requests
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p.Method != auth.MethodSession {
		h.respondWithError(w, http.StatusBadRequest, "CSRF tokens are only issued to cookie sessions", "", nil)
		return
	}
	token, err := h.csrf.GenerateToken(p.SessionID)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to generate CSRF token", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

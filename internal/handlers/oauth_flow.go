package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"moneynest/internal/security"
	"moneynest/internal/service"
)

const (
	googleProvider  = "google"
	oauthCookieTTL  = 10 * time.Minute
	oauthStateName  = "oauth_state"
	oauthInviteName = "oauth_invite_code"
)

// GoogleUserInfoURL is the profile endpoint queried after the code exchange
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthProvider defines provider configuration
type OAuthProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

type oauthUserInfo struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

func (p *OAuthProvider) configured() bool {
	return p != nil && p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// StartGoogle redirects the browser to Google's consent screen.
// An inviteCode query parameter is carried through and redeemed after sign-in.
func (h *AuthHandler) StartGoogle(w http.ResponseWriter, r *http.Request) {
	if !h.google.configured() {
		h.respondWithError(w, http.StatusNotFound, "Google sign-in is not configured", "", nil)
		return
	}

	state := security.GenerateSessionID()
	h.setTempCookie(w, r, oauthStateName, state, oauthCookieTTL)
	if inviteCode := r.URL.Query().Get("inviteCode"); inviteCode != "" {
		h.setTempCookie(w, r, oauthInviteName, inviteCode, oauthCookieTTL)
	}

	config := *h.google.Config
	config.RedirectURL = h.oauthRedirectURL(r, googleProvider)

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback completes the Google flow and starts a cookie session
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.google.configured() {
		h.respondWithError(w, http.StatusNotFound, "Google sign-in is not configured", "", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		h.respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	stateCookie, err := r.Cookie(oauthStateName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		h.respondWithError(w, http.StatusBadRequest, "Invalid OAuth state", "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *h.google.Config
	config.RedirectURL = h.oauthRedirectURL(r, googleProvider)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("oauth code exchange failed", zap.Error(err))
		h.respondWithError(w, http.StatusBadRequest, "Failed to exchange OAuth code", "", nil)
		return
	}

	userInfo, err := h.fetchGoogleUser(ctx, token)
	if err != nil {
		h.respondWithError(w, http.StatusBadGateway, err.Error(), "failed to fetch Google profile", err)
		return
	}

	inviteCode := ""
	if cookie, err := r.Cookie(oauthInviteName); err == nil {
		inviteCode = cookie.Value
	}
	h.clearTempCookie(w, r, oauthStateName)
	h.clearTempCookie(w, r, oauthInviteName)

	session, user, err := h.authService.OAuthLogin(r.Context(), service.OAuthIdentity{
		Provider:      googleProvider,
		Subject:       userInfo.Subject,
		Email:         userInfo.Email,
		Name:          userInfo.Name,
		EmailVerified: userInfo.EmailVerified,
	})
	if err != nil {
		h.respondServiceError(w, err, "failed to complete Google sign-in")
		return
	}

	if inviteCode != "" {
		if _, err := h.families.JoinFamily(r.Context(), user.ID, inviteCode); err != nil {
			h.logger.Warn("invite code from sign-in not redeemed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	if _, err := h.startSession(w, r, session); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "failed to write session cookie", err)
		return
	}
	http.Redirect(w, r, strings.TrimRight(h.appBaseURL, "/")+"/", http.StatusSeeOther)
}

func (h *AuthHandler) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(h.google.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse Google user info: %w", err)
	}
	if payload.ID == "" || payload.Email == "" {
		return oauthUserInfo{}, errors.New("Google account has no email address")
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name, EmailVerified: payload.VerifiedEmail}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

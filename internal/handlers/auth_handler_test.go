package handlers

import (
	"net/http"
	"strings"
	"testing"

	"moneynest/internal/security"
)

func TestRegister(t *testing.T) {
	s := newTestServer(t)
	email := uniqueEmail("alice")

	var created struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	expect(t, s.do(anonymous, http.MethodPost, "/auth/register",
		credentialsRequest{Name: "Alice", Email: email, Password: testPassword}), http.StatusOK, &created)
	if created.User.ID == 0 || created.User.Email != email {
		t.Errorf("unexpected registered user %+v", created.User)
	}

	tests := []struct {
		name string
		body any
		want int
	}{
		{"duplicate email", credentialsRequest{Name: "Alice", Email: email, Password: testPassword}, http.StatusConflict},
		{"duplicate email differing in case", credentialsRequest{Name: "Alice", Email: "  " + strings.ToUpper(email), Password: testPassword}, http.StatusConflict},
		{"short password", credentialsRequest{Name: "Bob", Email: uniqueEmail("bob"), Password: "short"}, http.StatusBadRequest},
		{"bad email", credentialsRequest{Name: "Bob", Email: "not-an-email", Password: testPassword}, http.StatusBadRequest},
		{"short name", credentialsRequest{Name: "B", Email: uniqueEmail("bob"), Password: testPassword}, http.StatusBadRequest},
		{"malformed body", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(anonymous, http.MethodPost, "/auth/register", tt.body)
			expect(t, rec, tt.want, nil)
			if errorMessage(t, rec) == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	s := newTestServer(t)
	email := s.register("Alice")

	rec := s.do(anonymous, http.MethodPost, "/auth/login", credentialsRequest{Email: email, Password: testPassword})
	expect(t, rec, http.StatusOK, nil)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == security.SessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("expected a session cookie")
	}
	if !session.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	wrong := s.do(anonymous, http.MethodPost, "/auth/login", credentialsRequest{Email: email, Password: "wrong password"})
	expect(t, wrong, http.StatusUnauthorized, nil)
	if len(wrong.Result().Cookies()) != 0 {
		t.Error("failed login must not set cookies")
	}
}

func TestMeWithEitherCredential(t *testing.T) {
	s := newTestServer(t)
	web := s.webClient("Web")
	mobile := s.mobileClient("Mobile")

	for name, c := range map[string]*client{"session": web, "bearer": mobile} {
		t.Run(name, func(t *testing.T) {
			var resp struct {
				User struct {
					ID       int64  `json:"id"`
					Password string `json:"passwordDigest"`
				} `json:"user"`
			}
			expect(t, s.do(c, http.MethodGet, "/auth/me", nil), http.StatusOK, &resp)
			if resp.User.ID != c.userID {
				t.Errorf("expected user %d, got %d", c.userID, resp.User.ID)
			}
			if resp.User.Password != "" {
				t.Error("password digest must never be serialized")
			}
		})
	}
}

func TestLogoutEndsSession(t *testing.T) {
	s := newTestServer(t)
	web := s.webClient("Web")

	expect(t, s.do(web, http.MethodPost, "/auth/logout", nil), http.StatusNoContent, nil)
	expect(t, s.do(web, http.MethodGet, "/auth/me", nil), http.StatusUnauthorized, nil)
}

func TestLogoutBearerIsNoop(t *testing.T) {
	s := newTestServer(t)
	mobile := s.mobileClient("Mobile")

	expect(t, s.do(mobile, http.MethodPost, "/auth/logout", nil), http.StatusNoContent, nil)
	expect(t, s.do(mobile, http.MethodGet, "/auth/me", nil), http.StatusOK, nil)
}

func TestCSRFTokenEndpoint(t *testing.T) {
	s := newTestServer(t)
	web := s.webClient("Web")
	mobile := s.mobileClient("Mobile")

	var resp map[string]string
	expect(t, s.do(web, http.MethodGet, "/auth/csrf", nil), http.StatusOK, &resp)
	if resp["csrfToken"] != web.csrf {
		t.Errorf("expected the token issued at login, got %q", resp["csrfToken"])
	}

	expect(t, s.do(mobile, http.MethodGet, "/auth/csrf", nil), http.StatusBadRequest, nil)
}

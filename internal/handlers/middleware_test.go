package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(anonymous, http.MethodGet, "/transactions", nil)
	expect(t, rec, http.StatusUnauthorized, nil)
	if msg := errorMessage(t, rec); msg != ErrUnauthorized {
		t.Errorf("unexpected message %q", msg)
	}

	forged := &client{bearer: "not-a-token"}
	expect(t, s.do(forged, http.MethodGet, "/transactions", nil), http.StatusUnauthorized, nil)
}

func TestCSRFOnlyGuardsCookieSessions(t *testing.T) {
	s := newTestServer(t)
	web := s.webClient("Web")
	mobile := s.mobileClient("Mobile")

	noToken := &client{cookies: web.cookies}
	wrongToken := &client{cookies: web.cookies, csrf: "deadbeef"}

	tests := []struct {
		name   string
		c      *client
		method string
		want   int
	}{
		{"cookie without token, unsafe", noToken, http.MethodPost, http.StatusForbidden},
		{"cookie with wrong token, unsafe", wrongToken, http.MethodPost, http.StatusForbidden},
		{"cookie with token, unsafe", web, http.MethodPost, http.StatusCreated},
		{"cookie without token, safe", noToken, http.MethodGet, http.StatusOK},
		{"bearer without token, unsafe", mobile, http.MethodPost, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if tt.method == http.MethodPost {
				body = familyNameRequest{Name: "Household"}
			}
			rec := s.do(tt.c, tt.method, "/families", body)
			expect(t, rec, tt.want, nil)
			if tt.want == http.StatusForbidden && errorMessage(t, rec) != ErrInvalidCSRFToken {
				t.Errorf("expected CSRF rejection, got %q", errorMessage(t, rec))
			}
		})
	}
}

func TestAuthEndpointsAreRateLimited(t *testing.T) {
	s := newTestServerWith(t, serverOptions{authBurst: 2})

	body := credentialsRequest{Email: "nobody@example.com", Password: testPassword}
	for i := 0; i < 2; i++ {
		expect(t, s.do(anonymous, http.MethodPost, "/auth/login", body), http.StatusUnauthorized, nil)
	}

	rec := s.do(anonymous, http.MethodPost, "/auth/login", body)
	expect(t, rec, http.StatusTooManyRequests, nil)
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

// loginForwardedFor posts a failing login carrying an X-Forwarded-For header
func loginForwardedFor(s *testServer, forwardedFor string) *httptest.ResponseRecorder {
	s.t.Helper()
	raw, err := json.Marshal(credentialsRequest{Email: "nobody@example.com", Password: testPassword})
	if err != nil {
		s.t.Fatalf("failed to encode request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	s := newTestServerWith(t, serverOptions{authBurst: 2})
	// Every request arrives from the same RemoteAddr
	expect(t, loginForwardedFor(s, "203.0.113.1"), http.StatusUnauthorized, nil)
	expect(t, loginForwardedFor(s, "203.0.113.2"), http.StatusUnauthorized, nil)
	expect(t, loginForwardedFor(s, "203.0.113.3"), http.StatusTooManyRequests, nil)
}

func TestRateLimitHonorsForwardedForBehindTrustedProxy(t *testing.T) {
	s := newTestServerWith(t, serverOptions{authBurst: 1, trustProxy: true})
	expect(t, loginForwardedFor(s, "203.0.113.1"), http.StatusUnauthorized, nil)
	expect(t, loginForwardedFor(s, "203.0.113.1"), http.StatusTooManyRequests, nil)
	expect(t, loginForwardedFor(s, "203.0.113.2"), http.StatusUnauthorized, nil)
}

func TestIsSafeMethod(t *testing.T) {
	for method, want := range map[string]bool{
		http.MethodGet:     true,
		http.MethodHead:    true,
		http.MethodOptions: true,
		http.MethodPost:    false,
		http.MethodPatch:   false,
		http.MethodDelete:  false,
	} {
		if got := isSafeMethod(method); got != want {
			t.Errorf("isSafeMethod(%s) = %v, want %v", method, got, want)
		}
	}
}

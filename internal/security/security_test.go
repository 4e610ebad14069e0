package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestHashPassword(t *testing.T) {
	password := "testPassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "scrypt$32768$8$1$") {
		t.Errorf("HashPassword() = %q, want self-describing scrypt digest", hash)
	}

	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashPassword() should produce different hashes due to salt")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "mySecurePassword"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct password", password, hash, true},
		{"incorrect password", "wrongPassword", hash, false},
		{"empty password", "", hash, false},
		{"empty digest", password, "", false},
		{"wrong scheme", password, strings.Replace(hash, "scrypt", "bcrypt", 1), false},
		{"too few parts", password, "scrypt$32768$8$1$abc", false},
		{"non numeric N", password, "scrypt$x$8$1$c2FsdA$a2V5", false},
		{"N not power of two", password, "scrypt$1000$8$1$c2FsdA$a2V5", false},
		{"bad base64 salt", password, "scrypt$16$8$1$!!!$a2V5", false},
		{"tampered key", password, hash[:len(hash)-6] + "AAAAAA", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte(strings.Repeat("k", 32)), 7*24*time.Hour)

	token, err := issuer.Issue(42, "ana@example.com", "Ana")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.ID != 42 || claims.Email != "ana@example.com" || claims.Name != "Ana" {
		t.Errorf("claims = %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != 7*24*time.Hour {
		t.Errorf("token lifetime = %v, want 168h", got)
	}
}

func TestTokenRejections(t *testing.T) {
	secret := []byte(strings.Repeat("k", 32))
	issuer := NewTokenIssuer(secret, time.Hour)
	valid, err := issuer.Issue(1, "a@example.com", "A")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expiredIssuer := NewTokenIssuer(secret, time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredIssuer.Issue(1, "a@example.com", "A")

	otherKey, _ := NewTokenIssuer([]byte(strings.Repeat("x", 32)), time.Hour).Issue(1, "a@example.com", "A")

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{ID: 1}).SignedString(secret)
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, TokenClaims{
		ID:               1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(secret)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{ID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tokens := map[string]string{
		"expired":       expired,
		"wrong key":     otherKey,
		"missing exp":   noExp,
		"wrong alg":     hs512,
		"alg none":      none,
		"malformed":     "not.a.token",
		"empty":         "",
		"tampered body": valid[:len(valid)-3] + "abc",
	}

	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			if _, err := issuer.Verify(token); err != ErrInvalidToken {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestCSRFGenerator(t *testing.T) {
	g := NewCSRFGenerator([]byte("secret"))

	token, err := g.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !g.ValidateToken("session-1", token) {
		t.Error("ValidateToken() = false for matching session")
	}
	if g.ValidateToken("session-2", token) {
		t.Error("ValidateToken() = true for another session")
	}
	if g.ValidateToken("session-1", "") {
		t.Error("ValidateToken() = true for empty token")
	}
	if _, err := g.GenerateToken(""); err == nil {
		t.Error("GenerateToken(\"\") should fail")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		if !rl.Allow("user:1") {
			t.Fatalf("attempt %d denied, want allowed within burst", i+1)
		}
	}
	if rl.Allow("user:1") {
		t.Error("sixth attempt allowed, want denied")
	}
	if !rl.Allow("user:2") {
		t.Error("other key should have its own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("user:1") {
		t.Error("attempt after refill interval denied")
	}

	now = now.Add(time.Hour)
	rl.Cleanup(30 * time.Minute)
	if got := rl.size(); got != 0 {
		t.Errorf("size after cleanup = %d, want 0", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded header ignored", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "10.0.0.2"},
		{"real ip header ignored", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:1234", "10.0.0.2"},
		{"remote addr", nil, "192.0.2.9:5555", "192.0.2.9"},
		{"remote addr without port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionCookiesRoundTrip(t *testing.T) {
	sc := NewSessionCookies([]byte(strings.Repeat("s", 32)), 24*time.Hour)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	if err := sc.Write(w, r, "abc-123", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName {
		t.Fatalf("cookies = %v, want one %s cookie", cookies, SessionCookieName)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if strings.Contains(cookies[0].Value, "abc-123") {
		t.Error("cookie value should be encoded, not the raw session id")
	}

	next := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	next.AddCookie(cookies[0])
	id, ok := sc.Read(next)
	if !ok || id != "abc-123" {
		t.Errorf("Read() = %q, %v; want abc-123, true", id, ok)
	}

	forged := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	forged.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
	if _, ok := sc.Read(forged); ok {
		t.Error("Read() accepted a forged cookie")
	}

	other := NewSessionCookies([]byte(strings.Repeat("o", 32)), 24*time.Hour)
	if _, ok := other.Read(next); ok {
		t.Error("Read() accepted a cookie signed with another key")
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"moneynest/internal/auth"
	"moneynest/internal/database"
	"moneynest/internal/repository"
	"moneynest/internal/security"
	"moneynest/internal/service"
	"moneynest/internal/stats"
	"moneynest/internal/testutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testServer struct {
	t       *testing.T
	db      *database.DB
	router  http.Handler
	authH   *AuthHandler
	cookies *security.SessionCookies
}

type serverOptions struct {
	authBurst  int
	google     *OAuthProvider
	trustProxy bool
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, serverOptions{authBurst: 100})
}

func newTestServerWith(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	db := testutil.NewDB(t)
	logger := testutil.Logger()

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	limitRepo := repository.NewSpendingLimitRepository(db)

	cache, err := stats.NewCache(time.Minute)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(cache.Close)

	email, err := service.NewEmailService(context.Background(), "", "", "", "", logger)
	if err != nil {
		t.Fatalf("failed to create email service: %v", err)
	}

	tokens := security.NewTokenIssuer(testSecret, time.Hour)
	guard := service.NewGuard(familyRepo)
	authService := service.NewAuthService(userRepo, tokens, email, logger, time.Hour)
	familyService := service.NewFamilyService(db, familyRepo, invitationRepo, userRepo, guard, email,
		security.NewRateLimiter(100, time.Minute), cache, logger)
	ledger := service.NewLedgerService(db, categoryRepo, transactionRepo, guard, cache, logger, 4096)
	limits := service.NewLimitService(limitRepo, categoryRepo, transactionRepo, familyRepo, guard)

	cookies := security.NewSessionCookies(testSecret, time.Hour)
	csrf := security.NewCSRFGenerator(testSecret)
	resolver := auth.NewResolver(auth.NewSessionStrategy(cookies, authService), auth.NewBearerStrategy(authService))

	authH := NewAuthHandler(authService, familyService, cookies, csrf, opts.google, "http://moneynest.test", "http://moneynest.test", logger)
	router := NewRouter(Handlers{
		Middleware:     NewMiddleware(resolver, csrf, security.NewRateLimiter(opts.authBurst, time.Minute), logger),
		Auth:           authH,
		Families:       NewFamilyHandler(familyService, logger),
		PersonalLedger: NewPersonalLedgerHandler(ledger, 4096, logger),
		FamilyLedger:   NewFamilyLedgerHandler(ledger, 4096, logger),
		Limits:         NewLimitHandler(limits, logger),
		DB:             db,
		Logger:         logger,
		TrustProxy:     opts.trustProxy,
	})

	return &testServer{t: t, db: db, router: router, authH: authH, cookies: cookies}
}

// client carries the credentials a browser or mobile app would send
type client struct {
	cookies []*http.Cookie
	csrf    string
	bearer  string
	userID  int64
}

var anonymous = &client{}

func (s *testServer) do(c *client, method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			if err != nil {
				s.t.Fatalf("failed to encode request body: %v", err)
			}
			raw = string(encoded)
		}
		reader = bytes.NewBufferString(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	if c.csrf != "" {
		req.Header.Set(security.CSRFHeader, c.csrf)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// expect fails the test unless rec has the wanted status, then decodes the body into v
func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, v any) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error response is not JSON: %q", rec.Body.String())
	}
	return body.Error
}

var emailSeq atomic.Int64

func uniqueEmail(name string) string {
	return fmt.Sprintf("%s%d@example.com", name, emailSeq.Add(1))
}

const testPassword = "correct horse battery"

func (s *testServer) register(name string) string {
	s.t.Helper()
	email := uniqueEmail(name)
	expect(s.t, s.do(anonymous, http.MethodPost, "/auth/register", credentialsRequest{Name: name, Email: email, Password: testPassword}), http.StatusOK, nil)
	return email
}

// webClient registers a user and logs in with a cookie session
func (s *testServer) webClient(name string) *client {
	s.t.Helper()
	email := s.register(name)

	rec := s.do(anonymous, http.MethodPost, "/auth/login", credentialsRequest{Email: email, Password: testPassword})
	var resp struct {
		User      struct{ ID int64 } `json:"user"`
		CSRFToken string             `json:"csrfToken"`
	}
	expect(s.t, rec, http.StatusOK, &resp)
	return &client{cookies: rec.Result().Cookies(), csrf: resp.CSRFToken, userID: resp.User.ID}
}

// mobileClient registers a user and obtains a bearer token
func (s *testServer) mobileClient(name string) *client {
	s.t.Helper()
	email := s.register(name)

	var resp struct {
		User        struct{ ID int64 } `json:"user"`
		AccessToken string             `json:"accessToken"`
	}
	expect(s.t, s.do(anonymous, http.MethodPost, "/auth/mobile", credentialsRequest{Email: email, Password: testPassword}), http.StatusOK, &resp)
	return &client{bearer: resp.AccessToken, userID: resp.User.ID}
}

type familyJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode"`
}

func (s *testServer) createFamily(c *client, name string) familyJSON {
	s.t.Helper()
	var family familyJSON
	expect(s.t, s.do(c, http.MethodPost, "/families", familyNameRequest{Name: name}), http.StatusCreated, &family)
	return family
}

func (s *testServer) join(c *client, code string) {
	s.t.Helper()
	expect(s.t, s.do(c, http.MethodPost, "/families/join", joinRequest{InviteCode: code}), http.StatusOK, nil)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	var body map[string]string
	expect(t, s.do(anonymous, http.MethodGet, "/health", nil), http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("expected ok, got %v", body)
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"moneynest/internal/validation"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, "  Foo@Example.com ", "password123", "Foo Bar")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "foo@example.com" {
		t.Errorf("email should be stored lowercase, got %q", user.Email)
	}
	if user.PasswordDigest == "password123" || !strings.HasPrefix(user.PasswordDigest, "scrypt$") {
		t.Errorf("password should be hashed, got %q", user.PasswordDigest)
	}
	if len(env.ses.sent) != 1 {
		t.Errorf("expected a welcome email, got %d sends", len(env.ses.sent))
	}

	// Case-insensitive duplicates conflict every time
	for i := 0; i < 2; i++ {
		_, err := env.auth.Register(ctx, "foo@example.com", "password123", "Someone Else")
		assertKind(t, err, ErrEmailTaken)
		assertKind(t, err, ErrConflict)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		email    string
		password string
		userName string
		field    string
	}{
		{"bad email", "not-an-email", "password123", "Valid Name", "email"},
		{"short password", "a@example.com", "short", "Valid Name", "password"},
		{"long password", "a@example.com", strings.Repeat("x", 73), "Valid Name", "password"},
		{"short name", "a@example.com", "password123", "A", "name"},
		{"markup only name", "a@example.com", "password123", "<b></b>", "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(context.Background(), tt.email, tt.password, tt.userName)
			var ve validation.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestRegisterWelcomeEmailFailureIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.ses.err = errors.New("ses down")

	if _, err := env.auth.Register(context.Background(), "mail@example.com", "password123", "Mail User"); err != nil {
		t.Fatalf("Register should succeed when the welcome email fails, got %v", err)
	}
}

func TestConcurrentRegistrationSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const attempts = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.auth.Register(ctx, "race@example.com", "password123", "Racer")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if !errors.Is(err, ErrEmailTaken) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly one registration to succeed, got %d", successes)
	}
}

func TestLoginAndSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered, err := env.auth.Register(ctx, "login@example.com", "password123", "Login User")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := env.auth.Login(ctx, "login@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := env.auth.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	session, user, err := env.auth.Login(ctx, "LOGIN@example.com", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("Login returned user %d, want %d", user.ID, registered.ID)
	}

	resolved, err := env.auth.ValidateSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if resolved.ID != registered.ID {
		t.Errorf("session resolved to user %d, want %d", resolved.ID, registered.ID)
	}

	if err := env.auth.Logout(ctx, session.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := env.auth.ValidateSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.user(t, "Expired")

	env.auth.sessionDuration = -1
	session, err := env.auth.startSession(ctx, userID)
	if err != nil {
		t.Fatalf("startSession failed: %v", err)
	}

	if _, err := env.auth.ValidateSession(ctx, session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	// The expired row is removed on lookup
	if _, err := env.auth.ValidateSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second lookup, got %v", err)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	userID := env.user(t, "Cleanup")

	env.auth.sessionDuration = -1
	for i := 0; i < 3; i++ {
		if _, err := env.auth.startSession(ctx, userID); err != nil {
			t.Fatalf("startSession failed: %v", err)
		}
	}

	n, err := env.auth.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions failed: %v", err)
	}
	if n != 3 {
		t.Errorf("removed %d sessions, want 3", n)
	}
}

func TestCreateTokenAndValidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered, err := env.auth.Register(ctx, "mobile@example.com", "password123", "Mobile User")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := env.auth.CreateToken(ctx, "mobile@example.com", "nope-nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}

	token, _, err := env.auth.CreateToken(ctx, "mobile@example.com", "password123")
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	user, err := env.auth.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("token resolved to user %d, want %d", user.ID, registered.ID)
	}

	if _, err := env.auth.ValidateToken(ctx, token+"x"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("tampered token: expected ErrUnauthenticated, got %v", err)
	}
}

func TestOAuthLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, created, err := env.auth.OAuthLogin(ctx, OAuthIdentity{
		Provider: "google", Subject: "sub-1", Email: "New.User@Example.com", Name: "New User", EmailVerified: true,
	})
	if err != nil {
		t.Fatalf("OAuthLogin (create) failed: %v", err)
	}
	if created.Email != "new.user@example.com" {
		t.Errorf("email = %q, want lowercase", created.Email)
	}

	_, again, err := env.auth.OAuthLogin(ctx, OAuthIdentity{Provider: "google", Subject: "sub-1", Email: "new.user@example.com"})
	if err != nil {
		t.Fatalf("OAuthLogin (repeat) failed: %v", err)
	}
	if again.ID != created.ID {
		t.Errorf("repeat login created a new user %d, want %d", again.ID, created.ID)
	}

	// Password accounts are linked by email
	registered, err := env.auth.Register(ctx, "linked@example.com", "password123", "Linked User")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	_, linked, err := env.auth.OAuthLogin(ctx, OAuthIdentity{
		Provider: "google", Subject: "sub-2", Email: "linked@example.com", Name: "Linked", EmailVerified: true,
	})
	if err != nil {
		t.Fatalf("OAuthLogin (link) failed: %v", err)
	}
	if linked.ID != registered.ID {
		t.Errorf("expected link to user %d, got %d", registered.ID, linked.ID)
	}

	// OAuth-only accounts cannot log in with a password
	if _, _, err := env.auth.Login(ctx, "new.user@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for oauth-only account, got %v", err)
	}

	if _, _, err := env.auth.OAuthLogin(ctx, OAuthIdentity{Email: "x@example.com", Name: "X", EmailVerified: true}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing provider, got %v", err)
	}
}

func TestOAuthLoginRequiresVerifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	victim, err := env.auth.Register(ctx, "victim@example.com", "password123", "Victim")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// An unverified copy of an existing address neither links nor signs in
	_, _, err = env.auth.OAuthLogin(ctx, OAuthIdentity{Provider: "google", Subject: "attacker", Email: "victim@example.com"})
	assertKind(t, err, ErrEmailNotVerified)
	assertKind(t, err, ErrForbidden)

	stored, err := env.auth.GetUser(ctx, victim.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if stored.OAuthProvider != "" {
		t.Errorf("account was linked to provider %q", stored.OAuthProvider)
	}

	// Nor does it create a fresh account
	_, _, err = env.auth.OAuthLogin(ctx, OAuthIdentity{Provider: "google", Subject: "newcomer", Email: "newcomer@example.com"})
	assertKind(t, err, ErrEmailNotVerified)
}

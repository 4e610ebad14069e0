package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"moneynest/internal/models"
	"moneynest/internal/repository"
	"moneynest/internal/security"
	"moneynest/internal/validation"
)

// AuthService handles registration, password login, web sessions and bearer tokens
type AuthService struct {
	userRepo        *repository.UserRepository
	tokens          *security.TokenIssuer
	email           *EmailService
	logger          *zap.Logger
	sessionDuration time.Duration
}

// NewAuthService creates a new auth service. email may be nil.
func NewAuthService(userRepo *repository.UserRepository, tokens *security.TokenIssuer, email *EmailService, logger *zap.Logger, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		tokens:          tokens,
		email:           email,
		logger:          logger,
		sessionDuration: sessionDuration,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user account. The welcome email is best-effort.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)
	name = validation.CleanText(name)

	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	digest, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// The UNIQUE(email) constraint decides concurrent registrations
	user, err := s.userRepo.CreateUser(ctx, email, digest, name)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	if s.email != nil {
		if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
			s.logger.Warn("welcome email failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	return user, nil
}

func (s *AuthService) checkCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordDigest == "" {
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, user.PasswordDigest) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates a user and creates a server-side session
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Session, *models.User, error) {
	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// CreateToken authenticates a user and issues a bearer token for mobile clients
func (s *AuthService) CreateToken(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) startSession(ctx context.Context, userID int64) (*models.Session, error) {
	expiresAt := time.Now().Add(s.sessionDuration)
	session, err := s.userRepo.CreateSession(ctx, security.GenerateSessionID(), userID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.userRepo.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}

	return user, nil
}

// ValidateToken verifies a bearer token. The claims are trusted for identity;
// the user row is still loaded so deleted accounts stop authenticating.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// GetUser returns a user by id, or ErrNotFound
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, kind(ErrNotFound, "user not found")
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.userRepo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.userRepo.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}

// OAuthIdentity is the profile an OAuth provider vouches for
type OAuthIdentity struct {
	Provider      string
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// OAuthLogin signs in a user through an OAuth provider, linking an existing
// account with the same email or creating a new one. An identity already
// linked signs in by subject; linking and creating require a verified email.
func (s *AuthService) OAuthLogin(ctx context.Context, identity OAuthIdentity) (*models.Session, *models.User, error) {
	provider, subject := identity.Provider, identity.Subject
	if provider == "" || subject == "" {
		return nil, nil, kind(ErrValidation, "missing oauth provider information")
	}
	email := normalizeEmail(identity.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		if !identity.EmailVerified {
			s.logger.Warn("oauth sign-in with unverified email refused", zap.String("provider", provider))
			return nil, nil, ErrEmailNotVerified
		}

		existingUser, err := s.userRepo.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}

		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.userRepo.LinkOAuthProvider(ctx, existingUser.ID, provider, subject); err != nil {
				return nil, nil, err
			}
			user = existingUser
		} else {
			name := validation.CleanText(identity.Name)
			if validation.ValidateName(name) != nil {
				name, _, _ = strings.Cut(email, "@")
			}
			user, err = s.userRepo.CreateOAuthUser(ctx, email, name, provider, subject)
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, nil, ErrEmailTaken
			}
			if err != nil {
				return nil, nil, err
			}
			s.logger.Info("oauth user created", zap.Int64("user_id", user.ID), zap.String("provider", provider))
		}
	}

	session, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

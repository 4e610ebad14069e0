package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moneynest/internal/database"
	"moneynest/internal/models"
)

// UserRepository handles database operations for users and sessions
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, password_digest, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordDigest,
		&user.OAuthProvider,
		&user.OAuthSubject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new user. A taken email returns ErrDuplicate.
func (r *UserRepository) CreateUser(ctx context.Context, email, passwordDigest, name string) (*models.User, error) {
	query := `
		INSERT INTO users (email, password_digest, name)
		VALUES (?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, email, passwordDigest, name)
	if err != nil {
		return nil, wrapWrite(r.db, "create user", err)
	}

	now := time.Now()
	return &models.User{
		ID:             id,
		Email:          email,
		Name:           name,
		PasswordDigest: passwordDigest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CreateOAuthUser inserts a user who signs in through an OAuth provider and has no password
func (r *UserRepository) CreateOAuthUser(ctx context.Context, email, name, provider, subject string) (*models.User, error) {
	query := `
		INSERT INTO users (email, name, oauth_provider, oauth_subject)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, email, name, provider, subject)
	if err != nil {
		return nil, wrapWrite(r.db, "create oauth user", err)
	}

	now := time.Now()
	return &models.User{
		ID:            id,
		Email:         email,
		Name:          name,
		OAuthProvider: provider,
		OAuthSubject:  subject,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByOAuth retrieves a user by OAuth provider and subject
func (r *UserRepository) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE oauth_provider = ? AND oauth_subject = ?"
	user, err := scanUser(r.db.QueryRowContext(ctx, query, provider, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by oauth: %w", err)
	}
	return user, nil
}

// LinkOAuthProvider attaches an OAuth identity to an existing user
func (r *UserRepository) LinkOAuthProvider(ctx context.Context, userID int64, provider, subject string) error {
	query := `
		UPDATE users
		SET oauth_provider = ?, oauth_subject = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, provider, subject, userID); err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}
	return nil
}

// CreateSession creates a new session for a user
func (r *UserRepository) CreateSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES (?, ?, ?)
	`
	expiresAt = expiresAt.UTC()
	if _, err := r.db.ExecContext(ctx, query, sessionID, userID, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	query := "SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?"
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteSession deletes a session
func (r *UserRepository) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions that expired before now
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

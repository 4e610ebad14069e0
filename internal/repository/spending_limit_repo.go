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

// SpendingLimitRepository handles family spending limits
type SpendingLimitRepository struct {
	db database.DBTX
}

// NewSpendingLimitRepository creates a new spending limit repository
func NewSpendingLimitRepository(db database.DBTX) *SpendingLimitRepository {
	return &SpendingLimitRepository{db: db}
}

const limitColumns = "id, family_id, category_id, user_id, limit_amount, period, alert_threshold, created_at"

func scanLimit(row rowScanner) (*models.SpendingLimit, error) {
	var (
		l          models.SpendingLimit
		categoryID sql.NullInt64
		userID     sql.NullInt64
	)
	if err := row.Scan(&l.ID, &l.FamilyID, &categoryID, &userID, &l.LimitAmount, &l.Period, &l.AlertThreshold, &l.CreatedAt); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		l.CategoryID = &categoryID.Int64
	}
	if userID.Valid {
		l.UserID = &userID.Int64
	}
	return &l, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// ListLimits returns a family's limits, oldest first
func (r *SpendingLimitRepository) ListLimits(ctx context.Context, familyID int64) ([]models.SpendingLimit, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+limitColumns+" FROM spending_limits WHERE family_id = ? ORDER BY id", familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query spending limits: %w", err)
	}
	defer rows.Close()

	limits := []models.SpendingLimit{}
	for rows.Next() {
		l, err := scanLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spending limit: %w", err)
		}
		limits = append(limits, *l)
	}
	return limits, rows.Err()
}

// GetLimit retrieves a limit by id, or nil when absent
func (r *SpendingLimitRepository) GetLimit(ctx context.Context, id int64) (*models.SpendingLimit, error) {
	l, err := scanLimit(r.db.QueryRowContext(ctx, "SELECT "+limitColumns+" FROM spending_limits WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spending limit: %w", err)
	}
	return l, nil
}

// CreateLimit inserts a limit
func (r *SpendingLimitRepository) CreateLimit(ctx context.Context, l models.SpendingLimit) (*models.SpendingLimit, error) {
	query := `
		INSERT INTO spending_limits (family_id, category_id, user_id, limit_amount, period, alert_threshold)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, l.FamilyID, nullableID(l.CategoryID), nullableID(l.UserID),
		int64(l.LimitAmount), string(l.Period), l.AlertThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to create spending limit: %w", err)
	}
	l.ID = id
	l.CreatedAt = time.Now()
	return &l, nil
}

// DeleteLimit removes a limit
func (r *SpendingLimitRepository) DeleteLimit(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM spending_limits WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete spending limit: %w", err)
	}
	return nil
}

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

// CategoryRepository handles personal and family categories
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *CategoryRepository) WithTx(tx *database.Tx) *CategoryRepository {
	return &CategoryRepository{db: tx}
}

func categorySelect(t ledgerTables) string {
	owner := "c.user_id"
	if t.ownerColumn == "family_id" {
		owner = "c.family_id"
	}
	return fmt.Sprintf(
		"SELECT c.id, %s, %s, c.name, c.icon, c.type, c.budget_limit, c.color, c.created_at FROM %s c",
		owner, t.createdByExpr, t.categories,
	)
}

func scanCategory(row rowScanner, scope models.Scope) (*models.Category, error) {
	var (
		c         models.Category
		ownerID   int64
		createdBy int64
		budget    sql.NullInt64
		color     sql.NullString
	)
	if err := row.Scan(&c.ID, &ownerID, &createdBy, &c.Name, &c.Icon, &c.Type, &budget, &color, &c.CreatedAt); err != nil {
		return nil, err
	}
	if scope.IsFamily() {
		c.FamilyID = ownerID
		c.CreatedBy = createdBy
	} else {
		c.UserID = ownerID
	}
	if budget.Valid {
		limit := models.Money(budget.Int64)
		c.BudgetLimit = &limit
	}
	if color.Valid {
		c.Color = &color.String
	}
	return &c, nil
}

// ListCategories returns every category of the scope ordered by name
func (r *CategoryRepository) ListCategories(ctx context.Context, scope models.Scope) ([]models.Category, error) {
	t := tablesFor(scope)
	query := categorySelect(t) + " WHERE c." + t.ownerColumn + " = ? ORDER BY c.type, c.name, c.id"

	rows, err := r.db.QueryContext(ctx, query, scope.OwnerID())
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// GetCategory looks a category up by id within the scope's table without
// filtering by owner, so callers can tell "absent" from "not yours".
func (r *CategoryRepository) GetCategory(ctx context.Context, scope models.Scope, id int64) (*models.Category, error) {
	query := categorySelect(tablesFor(scope)) + " WHERE c.id = ?"
	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id), scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func nullableMoney(m *models.Money) any {
	if m == nil {
		return nil
	}
	return int64(*m)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// CreateCategory inserts c into the scope. createdBy is recorded for family categories.
func (r *CategoryRepository) CreateCategory(ctx context.Context, scope models.Scope, createdBy int64, c models.Category) (*models.Category, error) {
	var (
		id  int64
		err error
	)
	if scope.IsFamily() {
		query := `
			INSERT INTO family_categories (family_id, created_by, name, icon, type, budget_limit, color)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		id, err = r.db.ExecReturningID(ctx, query, scope.FamilyID, createdBy, c.Name, c.Icon, string(c.Type),
			nullableMoney(c.BudgetLimit), nullableString(c.Color))
		c.FamilyID = scope.FamilyID
		c.CreatedBy = createdBy
	} else {
		query := `
			INSERT INTO categories (user_id, name, icon, type, budget_limit, color)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		id, err = r.db.ExecReturningID(ctx, query, scope.UserID, c.Name, c.Icon, string(c.Type),
			nullableMoney(c.BudgetLimit), nullableString(c.Color))
		c.UserID = scope.UserID
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	c.ID = id
	c.CreatedAt = time.Now()
	return &c, nil
}

// UpdateCategory writes the mutable fields of c
func (r *CategoryRepository) UpdateCategory(ctx context.Context, scope models.Scope, c *models.Category) error {
	query := "UPDATE " + tablesFor(scope).categories +
		" SET name = ?, icon = ?, type = ?, budget_limit = ?, color = ? WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, c.Name, c.Icon, string(c.Type),
		nullableMoney(c.BudgetLimit), nullableString(c.Color), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category row
func (r *CategoryRepository) DeleteCategory(ctx context.Context, scope models.Scope, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+tablesFor(scope).categories+" WHERE id = ?", id); err != nil {
		return wrapWrite(r.db, "delete category", err)
	}
	return nil
}

// LockCategory takes a row lock on a category for the rest of the enclosing
// transaction. It reports false when the row does not exist.
func (r *CategoryRepository) LockCategory(ctx context.Context, scope models.Scope, id int64) (bool, error) {
	var locked int64
	query := "SELECT id FROM " + tablesFor(scope).categories + " WHERE id = ?" + r.db.GetDialect().LockSuffix()
	err := r.db.QueryRowContext(ctx, query, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock category: %w", err)
	}
	return true, nil
}

// CountTransactions returns how many transactions reference the category
func (r *CategoryRepository) CountTransactions(ctx context.Context, scope models.Scope, categoryID int64) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM " + tablesFor(scope).transactions + " WHERE category_id = ?"
	if err := r.db.QueryRowContext(ctx, query, categoryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count category transactions: %w", err)
	}
	return count, nil
}

// ReassignTransactions points every transaction of category from at category to
func (r *CategoryRepository) ReassignTransactions(ctx context.Context, scope models.Scope, from, to int64) (int64, error) {
	query := "UPDATE " + tablesFor(scope).transactions + " SET category_id = ?, updated_at = CURRENT_TIMESTAMP WHERE category_id = ?"
	result, err := r.db.ExecContext(ctx, query, to, from)
	if err != nil {
		return 0, wrapWrite(r.db, "reassign transactions", err)
	}
	return result.RowsAffected()
}

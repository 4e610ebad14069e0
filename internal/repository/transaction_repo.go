package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneynest/internal/database"
	"moneynest/internal/models"
)

// TransactionRepository handles personal and family transactions
type TransactionRepository struct {
	db database.DBTX
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db database.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *TransactionRepository) WithTx(tx *database.Tx) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func transactionSelect(t ledgerTables, withReceipt bool) string {
	receipt := "NULL"
	if withReceipt {
		receipt = "t.receipt_image"
	}
	return fmt.Sprintf(`
		SELECT t.id, t.user_id, %s, t.category_id, t.amount, t.description, t.date, t.type,
		       t.notes, %s, t.created_at, t.updated_at, COALESCE(c.name, '')
		FROM %s t
		LEFT JOIN %s c ON c.id = t.category_id`,
		t.familyExpr, receipt, t.transactions, t.categories,
	)
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx      models.Transaction
		notes   sql.NullString
		receipt sql.NullString
	)
	if err := row.Scan(
		&tx.ID, &tx.UserID, &tx.FamilyID, &tx.CategoryID, &tx.Amount, &tx.Description, &tx.Date, &tx.Type,
		&notes, &receipt, &tx.CreatedAt, &tx.UpdatedAt, &tx.CategoryName,
	); err != nil {
		return nil, err
	}
	if notes.Valid {
		tx.Notes = &notes.String
	}
	if receipt.Valid {
		tx.ReceiptImage = &receipt.String
	}
	return &tx, nil
}

// ListTransactions returns the scope's transactions matching filter, newest first.
// Receipt images are only loaded by GetTransaction.
func (r *TransactionRepository) ListTransactions(ctx context.Context, scope models.Scope, filter models.TransactionFilter) ([]models.Transaction, error) {
	t := tablesFor(scope)

	conditions := []string{"t." + t.ownerColumn + " = ?"}
	args := []any{scope.OwnerID()}
	if filter.From != "" {
		conditions = append(conditions, "t.date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conditions = append(conditions, "t.date <= ?")
		args = append(args, filter.To)
	}
	if filter.Type != "" {
		conditions = append(conditions, "t.type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.CategoryID != 0 {
		conditions = append(conditions, "t.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.UserID != 0 && scope.IsFamily() {
		conditions = append(conditions, "t.user_id = ?")
		args = append(args, filter.UserID)
	}

	query := transactionSelect(t, false) +
		" WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY t.date DESC, t.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// GetTransaction looks a transaction up by id within the scope's table without filtering by owner
func (r *TransactionRepository) GetTransaction(ctx context.Context, scope models.Scope, id int64) (*models.Transaction, error) {
	query := transactionSelect(tablesFor(scope), true) + " WHERE t.id = ?"
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// CreateTransaction inserts tx into the scope's ledger
func (r *TransactionRepository) CreateTransaction(ctx context.Context, scope models.Scope, tx models.Transaction) (*models.Transaction, error) {
	var (
		id  int64
		err error
	)
	if scope.IsFamily() {
		query := `
			INSERT INTO family_transactions (family_id, user_id, category_id, amount, description, date, type, notes, receipt_image)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err = r.db.ExecReturningID(ctx, query, scope.FamilyID, tx.UserID, tx.CategoryID, int64(tx.Amount),
			tx.Description, tx.Date, string(tx.Type), nullableString(tx.Notes), nullableString(tx.ReceiptImage))
		tx.FamilyID = scope.FamilyID
	} else {
		query := `
			INSERT INTO transactions (user_id, category_id, amount, description, date, type, notes, receipt_image)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err = r.db.ExecReturningID(ctx, query, scope.UserID, tx.CategoryID, int64(tx.Amount),
			tx.Description, tx.Date, string(tx.Type), nullableString(tx.Notes), nullableString(tx.ReceiptImage))
		tx.UserID = scope.UserID
	}
	if err != nil {
		return nil, wrapWrite(r.db, "create transaction", err)
	}

	now := time.Now()
	tx.ID = id
	tx.CreatedAt = now
	tx.UpdatedAt = now
	return &tx, nil
}

// UpdateTransaction writes the mutable fields of tx
func (r *TransactionRepository) UpdateTransaction(ctx context.Context, scope models.Scope, tx *models.Transaction) error {
	query := "UPDATE " + tablesFor(scope).transactions + `
		SET category_id = ?, amount = ?, description = ?, date = ?, type = ?, notes = ?, receipt_image = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, tx.CategoryID, int64(tx.Amount), tx.Description, tx.Date, string(tx.Type),
		nullableString(tx.Notes), nullableString(tx.ReceiptImage), tx.ID)
	if err != nil {
		return wrapWrite(r.db, "update transaction", err)
	}
	tx.UpdatedAt = time.Now()
	return nil
}

// DeleteTransaction removes a transaction row
func (r *TransactionRepository) DeleteTransaction(ctx context.Context, scope models.Scope, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM "+tablesFor(scope).transactions+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

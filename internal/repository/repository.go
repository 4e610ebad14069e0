package repository

import (
	"errors"
	"fmt"

	"moneynest/internal/database"
)

// ErrDuplicate is returned when an insert or update hits a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// ErrForeignKey is returned when a write references a missing row or a delete
// removes a row that is still referenced
var ErrForeignKey = errors.New("foreign key constraint failed")

// wrapWrite maps unique violations to ErrDuplicate, foreign key failures to
// ErrForeignKey and wraps everything else
func wrapWrite(db database.DBTX, action string, err error) error {
	dialect := db.GetDialect()
	if dialect.IsUniqueViolation(err) {
		return fmt.Errorf("failed to %s: %w", action, ErrDuplicate)
	}
	if dialect.IsForeignKeyViolation(err) {
		return fmt.Errorf("failed to %s: %w", action, ErrForeignKey)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

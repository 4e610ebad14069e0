package database

import (
	"database/sql"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4/database"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the embedded migrations directory for this dialect
	MigrationsSubdir() string

	// MigrationDriver wraps an open connection in a golang-migrate database driver
	MigrationDriver(db *sql.DB) (database.Driver, error)

	// LockSuffix is appended to a SELECT to take a row lock inside a transaction.
	// SQLite serializes writers at BEGIN instead and returns "".
	LockSuffix() string

	// IsUniqueViolation reports whether err is a unique/primary key constraint failure
	IsUniqueViolation(err error) bool

	// IsForeignKeyViolation reports whether err is a foreign key constraint failure
	IsForeignKeyViolation(err error) bool
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"moneynest/internal/database"
)

// NewDB opens a migrated SQLite database in a temporary directory
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "moneynest.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// Logger returns a logger that discards output
func Logger() *zap.Logger {
	return zap.NewNop()
}

var userSeq atomic.Int64

// CreateUser inserts a user with a unique email and returns its id
func CreateUser(t testing.TB, db *database.DB, name string) int64 {
	t.Helper()

	email := fmt.Sprintf("user%d@example.com", userSeq.Add(1))
	id, err := db.ExecReturningID(context.Background(),
		"INSERT INTO users (email, name, password_digest) VALUES (?, ?, ?)", email, name, "x")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return id
}

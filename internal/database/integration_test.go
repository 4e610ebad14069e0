package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "moneynest.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{
		"users", "sessions", "families", "family_members", "categories",
		"family_categories", "transactions", "family_transactions",
		"spending_limits", "invitations",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("MigrationVersion() = %d, %v; want 1, false", version, dirty)
	}

	// Running again is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Errorf("second RunMigrations() error = %v", err)
	}
}

func TestWithTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecReturningID(ctx, "INSERT INTO users (email, name, password_digest) VALUES (?, ?, ?)",
			"committed@example.com", "Committed", "x")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	rollbackErr := errors.New("rollback")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO users (email, name, password_digest) VALUES (?, ?, ?)",
			"rolled@example.com", "Rolled", "x"); err != nil {
			return err
		}
		return rollbackErr
	})
	if !errors.Is(err, rollbackErr) {
		t.Fatalf("WithTx() error = %v, want %v", err, rollbackErr)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 user after rollback, got %d", count)
	}
}

func TestUniqueViolationFromDriver(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	insert := "INSERT INTO users (email, name, password_digest) VALUES (?, ?, ?)"
	if _, err := db.ExecReturningID(ctx, insert, "dup@example.com", "One", "x"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := db.ExecReturningID(ctx, insert, "dup@example.com", "Two", "x")
	if err == nil {
		t.Fatal("expected duplicate email to fail")
	}
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false, want true", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, CURRENT_TIMESTAMP)", "s1", 999)
	if err == nil {
		t.Error("expected foreign key violation for unknown user")
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "INSERT INTO users (email, name, password_digest) VALUES (?, ?, ?)",
		"concurrent@example.com", "Concurrent", "x"); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var name string
			err := db.QueryRowContext(ctx, "SELECT name FROM users WHERE email = ?", "concurrent@example.com").Scan(&name)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
				return
			}
			if name != "Concurrent" {
				t.Errorf("Expected name 'Concurrent', got '%s'", name)
			}
		}()
	}
	wg.Wait()
}

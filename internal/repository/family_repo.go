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

// FamilyRepository handles database operations for families and memberships
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *FamilyRepository) WithTx(tx *database.Tx) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

// CreateFamily inserts a family row. A taken invite code returns ErrDuplicate.
func (r *FamilyRepository) CreateFamily(ctx context.Context, name, inviteCode string, createdBy int64) (*models.Family, error) {
	query := "INSERT INTO families (name, invite_code, created_by) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(ctx, query, name, inviteCode, createdBy)
	if err != nil {
		return nil, wrapWrite(r.db, "create family", err)
	}

	now := time.Now()
	return &models.Family{
		ID:         id,
		Name:       name,
		InviteCode: inviteCode,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// InviteCodeExists reports whether any family already uses code
func (r *FamilyRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families WHERE invite_code = ?", code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check invite code: %w", err)
	}
	return count > 0, nil
}

const familyColumns = "id, name, invite_code, created_by, created_at, updated_at"

func scanFamily(row rowScanner) (*models.Family, error) {
	family := &models.Family{}
	if err := row.Scan(
		&family.ID,
		&family.Name,
		&family.InviteCode,
		&family.CreatedBy,
		&family.CreatedAt,
		&family.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return family, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error) {
	family, err := scanFamily(r.db.QueryRowContext(ctx, "SELECT "+familyColumns+" FROM families WHERE id = ?", familyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetFamilyByInviteCode retrieves the family whose current invite code is code
func (r *FamilyRepository) GetFamilyByInviteCode(ctx context.Context, code string) (*models.Family, error) {
	family, err := scanFamily(r.db.QueryRowContext(ctx, "SELECT "+familyColumns+" FROM families WHERE invite_code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family by invite code: %w", err)
	}
	return family, nil
}

// LockFamily takes a row lock on the family for the rest of the transaction.
// It reports false when the family does not exist.
func (r *FamilyRepository) LockFamily(ctx context.Context, familyID int64) (bool, error) {
	query := "SELECT id FROM families WHERE id = ?" + r.db.GetDialect().LockSuffix()
	var id int64
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock family: %w", err)
	}
	return true, nil
}

// GetUserFamilies retrieves all families a user belongs to, with the user's role
func (r *FamilyRepository) GetUserFamilies(ctx context.Context, userID int64) ([]models.FamilySummary, error) {
	query := `
		SELECT f.id, f.name, f.invite_code, f.created_by, f.created_at, f.updated_at, fm.role,
		       (SELECT COUNT(*) FROM family_members c WHERE c.family_id = f.id)
		FROM families f
		INNER JOIN family_members fm ON f.id = fm.family_id
		WHERE fm.user_id = ?
		ORDER BY f.created_at DESC, f.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	families := []models.FamilySummary{}
	for rows.Next() {
		var s models.FamilySummary
		if err := rows.Scan(
			&s.ID, &s.Name, &s.InviteCode, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
			&s.Role, &s.MemberCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, s)
	}
	return families, rows.Err()
}

// AddMember adds a user to a family. An existing membership returns ErrDuplicate.
func (r *FamilyRepository) AddMember(ctx context.Context, familyID, userID int64, role models.Role) error {
	query := "INSERT INTO family_members (family_id, user_id, role) VALUES (?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, query, familyID, userID, string(role)); err != nil {
		return wrapWrite(r.db, "add family member", err)
	}
	return nil
}

// GetMember returns the membership row for (familyID, userID), or nil when absent
func (r *FamilyRepository) GetMember(ctx context.Context, familyID, userID int64) (*models.FamilyMember, error) {
	query := "SELECT family_id, user_id, role, joined_at FROM family_members WHERE family_id = ? AND user_id = ?"
	member := &models.FamilyMember{}
	err := r.db.QueryRowContext(ctx, query, familyID, userID).Scan(
		&member.FamilyID, &member.UserID, &member.Role, &member.JoinedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family member: %w", err)
	}
	return member, nil
}

// GetMembers retrieves all members of a family with their names
func (r *FamilyRepository) GetMembers(ctx context.Context, familyID int64) ([]models.FamilyMember, error) {
	query := `
		SELECT fm.family_id, fm.user_id, fm.role, fm.joined_at, u.name, u.email
		FROM family_members fm
		INNER JOIN users u ON fm.user_id = u.id
		WHERE fm.family_id = ?
		ORDER BY fm.joined_at ASC, fm.user_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []models.FamilyMember{}
	for rows.Next() {
		var m models.FamilyMember
		if err := rows.Scan(&m.FamilyID, &m.UserID, &m.Role, &m.JoinedAt, &m.Name, &m.Email); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountMembers returns the number of members and how many of them are admins
func (r *FamilyRepository) CountMembers(ctx context.Context, familyID int64) (members, admins int, err error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN role = 'ADMIN' THEN 1 ELSE 0 END), 0)
		FROM family_members
		WHERE family_id = ?
	`
	if err := r.db.QueryRowContext(ctx, query, familyID).Scan(&members, &admins); err != nil {
		return 0, 0, fmt.Errorf("failed to count family members: %w", err)
	}
	return members, admins, nil
}

// RemoveMember deletes a membership. It reports false when none existed.
func (r *FamilyRepository) RemoveMember(ctx context.Context, familyID, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM family_members WHERE family_id = ? AND user_id = ?", familyID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove family member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to remove family member: %w", err)
	}
	return n > 0, nil
}

// UpdateMemberRole changes a member's role. It reports false when the membership does not exist.
func (r *FamilyRepository) UpdateMemberRole(ctx context.Context, familyID, userID int64, role models.Role) (bool, error) {
	result, err := r.db.ExecContext(ctx, "UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ?", string(role), familyID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to update member role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update member role: %w", err)
	}
	return n > 0, nil
}

// UpdateFamilyName updates a family's name
func (r *FamilyRepository) UpdateFamilyName(ctx context.Context, familyID int64, name string) error {
	query := "UPDATE families SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, name, familyID); err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// UpdateInviteCode replaces a family's invite code. A taken code returns ErrDuplicate.
func (r *FamilyRepository) UpdateInviteCode(ctx context.Context, familyID int64, code string) error {
	query := "UPDATE families SET invite_code = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, code, familyID); err != nil {
		return wrapWrite(r.db, "update invite code", err)
	}
	return nil
}

// DeleteFamily deletes a family and everything scoped to it.
// Run inside a transaction so the deletes commit together.
func (r *FamilyRepository) DeleteFamily(ctx context.Context, familyID int64) error {
	statements := []struct {
		what  string
		query string
	}{
		{"spending limits", "DELETE FROM spending_limits WHERE family_id = ?"},
		{"invitations", "DELETE FROM invitations WHERE family_id = ?"},
		{"family transactions", "DELETE FROM family_transactions WHERE family_id = ?"},
		{"family categories", "DELETE FROM family_categories WHERE family_id = ?"},
		{"family members", "DELETE FROM family_members WHERE family_id = ?"},
		{"family", "DELETE FROM families WHERE id = ?"},
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt.query, familyID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", stmt.what, err)
		}
	}
	return nil
}

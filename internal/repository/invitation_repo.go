package repository

import (
	"context"
	"fmt"
	"time"

	"moneynest/internal/database"
	"moneynest/internal/models"
)

// InvitationRepository records invite-code emails sent on behalf of a family
type InvitationRepository struct {
	db database.DBTX
}

func NewInvitationRepository(db database.DBTX) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// CreateInvitation records that email was sent the family's invite code
func (r *InvitationRepository) CreateInvitation(ctx context.Context, familyID int64, email string, invitedBy int64) (*models.Invitation, error) {
	query := `INSERT INTO invitations (family_id, email, invited_by) VALUES (?, ?, ?)`
	id, err := r.db.ExecReturningID(ctx, query, familyID, email, invitedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return &models.Invitation{
		ID:        id,
		FamilyID:  familyID,
		Email:     email,
		InvitedBy: invitedBy,
		CreatedAt: time.Now(),
	}, nil
}

// GetFamilyInvitations lists invitations for a family, newest first
func (r *InvitationRepository) GetFamilyInvitations(ctx context.Context, familyID int64) ([]models.Invitation, error) {
	query := `
		SELECT i.id, i.family_id, i.email, i.invited_by, i.created_at, COALESCE(u.name, '')
		FROM invitations i
		LEFT JOIN users u ON i.invited_by = u.id
		WHERE i.family_id = ?
		ORDER BY i.created_at DESC, i.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.ID, &inv.FamilyID, &inv.Email, &inv.InvitedBy, &inv.CreatedAt, &inv.InviterName); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

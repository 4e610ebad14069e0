package service

import (
	"context"
	"fmt"

	"moneynest/internal/database"
	"moneynest/internal/models"
	"moneynest/internal/repository"
)

// Guard gates family-scoped operations by membership and role.
// A missing family and a missing membership look the same to the caller.
type Guard struct {
	familyRepo *repository.FamilyRepository
}

// NewGuard creates a membership guard
func NewGuard(familyRepo *repository.FamilyRepository) *Guard {
	return &Guard{familyRepo: familyRepo}
}

// WithTx returns a guard that reads memberships inside tx
func (g *Guard) WithTx(tx *database.Tx) *Guard {
	return &Guard{familyRepo: g.familyRepo.WithTx(tx)}
}

// RequireMember returns the caller's membership or ErrNotFamilyMember
func (g *Guard) RequireMember(ctx context.Context, userID, familyID int64) (*models.FamilyMember, error) {
	member, err := g.familyRepo.GetMember(ctx, familyID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify family access: %w", err)
	}
	if member == nil {
		return nil, ErrNotFamilyMember
	}
	return member, nil
}

// RequireAdmin returns the caller's membership when it holds the ADMIN role
func (g *Guard) RequireAdmin(ctx context.Context, userID, familyID int64) (*models.FamilyMember, error) {
	member, err := g.RequireMember(ctx, userID, familyID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin() {
		return nil, ErrNotFamilyAdmin
	}
	return member, nil
}

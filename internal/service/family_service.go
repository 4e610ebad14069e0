package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"moneynest/internal/credentials"
	"moneynest/internal/database"
	"moneynest/internal/models"
	"moneynest/internal/repository"
	"moneynest/internal/security"
	"moneynest/internal/stats"
	"moneynest/internal/validation"
)

// MaxInviteCodeAttempts bounds invite code generation against collisions
const MaxInviteCodeAttempts = 10

const familyNameMax = 100

// FamilyService manages families, memberships, roles and invite codes
type FamilyService struct {
	db             *database.DB
	familyRepo     *repository.FamilyRepository
	invitationRepo *repository.InvitationRepository
	userRepo       *repository.UserRepository
	guard          *Guard
	email          *EmailService
	joinLimiter    *security.RateLimiter
	cache          *stats.Cache
	logger         *zap.Logger

	generateCode func() (string, error)
}

// NewFamilyService creates a new family service. email, joinLimiter and cache may be nil.
func NewFamilyService(
	db *database.DB,
	familyRepo *repository.FamilyRepository,
	invitationRepo *repository.InvitationRepository,
	userRepo *repository.UserRepository,
	guard *Guard,
	email *EmailService,
	joinLimiter *security.RateLimiter,
	cache *stats.Cache,
	logger *zap.Logger,
) *FamilyService {
	return &FamilyService{
		db:             db,
		familyRepo:     familyRepo,
		invitationRepo: invitationRepo,
		userRepo:       userRepo,
		guard:          guard,
		email:          email,
		joinLimiter:    joinLimiter,
		cache:          cache,
		logger:         logger,
		generateCode:   credentials.GenerateInviteCode,
	}
}

func cleanFamilyName(name string) (string, error) {
	name = validation.CleanText(name)
	if err := validation.ValidateLength("name", name, familyNameMax); err != nil {
		return "", err
	}
	return name, nil
}

// withUniqueCode calls write with fresh invite codes until one is accepted.
// Both a pre-check hit and a unique violation from write count as a collision.
func (s *FamilyService) withUniqueCode(ctx context.Context, write func(code string) error) (string, error) {
	for attempt := 1; attempt <= MaxInviteCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}

		exists, err := s.familyRepo.InviteCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if exists {
			s.logger.Debug("invite code collision", zap.Int("attempt", attempt))
			continue
		}

		err = write(code)
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Debug("invite code collision on write", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}

	s.logger.Error("invite code generation exhausted", zap.Int("attempts", MaxInviteCodeAttempts))
	return "", ErrInviteCodeExhausted
}

// CreateFamily creates a family with ownerID as its first ADMIN. The family
// row and the membership row commit together.
func (s *FamilyService) CreateFamily(ctx context.Context, ownerID int64, name string) (*models.Family, error) {
	name, err := cleanFamilyName(name)
	if err != nil {
		return nil, err
	}

	var family *models.Family
	_, err = s.withUniqueCode(ctx, func(code string) error {
		// One transaction per attempt: a unique violation aborts the
		// transaction on PostgreSQL.
		return s.db.WithTx(ctx, func(tx *database.Tx) error {
			families := s.familyRepo.WithTx(tx)
			f, err := families.CreateFamily(ctx, name, code, ownerID)
			if err != nil {
				return err
			}
			if err := families.AddMember(ctx, f.ID, ownerID, models.RoleAdmin); err != nil {
				return fmt.Errorf("failed to add family admin: %w", err)
			}
			family = f
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("family created", zap.Int64("family_id", family.ID), zap.Int64("user_id", ownerID))
	return family, nil
}

// JoinFamily redeems an invite code and adds userID as a MEMBER
func (s *FamilyService) JoinFamily(ctx context.Context, userID int64, inviteCode string) (*models.Family, error) {
	if s.joinLimiter != nil && !s.joinLimiter.Allow("join:"+strconv.FormatInt(userID, 10)) {
		s.logger.Warn("join attempts throttled", zap.Int64("user_id", userID))
		return nil, ErrTooManyAttempts
	}

	code := credentials.NormalizeInviteCode(inviteCode)
	if !credentials.ValidInviteCode(code) {
		return nil, ErrInvalidInviteCode
	}

	family, err := s.familyRepo.GetFamilyByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	existing, err := s.familyRepo.GetMember(ctx, family.ID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	err = s.familyRepo.AddMember(ctx, family.ID, userID, models.RoleMember)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("family joined", zap.Int64("family_id", family.ID), zap.Int64("user_id", userID))
	return family, nil
}

// LeaveFamily removes userID's own membership. The last admin of a family
// with other members cannot leave, and neither can a sole member.
func (s *FamilyService) LeaveFamily(ctx context.Context, userID, familyID int64) error {
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		families := s.familyRepo.WithTx(tx)

		found, err := families.LockFamily(ctx, familyID)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFamilyMember
		}

		member, err := families.GetMember(ctx, familyID, userID)
		if err != nil {
			return err
		}
		if member == nil {
			return ErrNotFamilyMember
		}

		if member.IsAdmin() {
			members, admins, err := families.CountMembers(ctx, familyID)
			if err != nil {
				return err
			}
			if members == 1 {
				return ErrSoleMember
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		if _, err := families.RemoveMember(ctx, familyID, userID); err != nil {
			return err
		}
		return checkAdminInvariant(ctx, families, familyID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("family left", zap.Int64("family_id", familyID), zap.Int64("user_id", userID))
	return nil
}

// checkAdminInvariant fails when the family still has members but no admin
func checkAdminInvariant(ctx context.Context, families *repository.FamilyRepository, familyID int64) error {
	members, admins, err := families.CountMembers(ctx, familyID)
	if err != nil {
		return err
	}
	if members > 0 && admins == 0 {
		return ErrLastAdmin
	}
	return nil
}

// DeleteFamily removes a family and everything scoped to it
func (s *FamilyService) DeleteFamily(ctx context.Context, requesterID, familyID int64) error {
	if _, err := s.guard.RequireAdmin(ctx, requesterID, familyID); err != nil {
		return err
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		return s.familyRepo.WithTx(tx).DeleteFamily(ctx, familyID)
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(models.FamilyScope(familyID))
	s.logger.Info("family deleted", zap.Int64("family_id", familyID), zap.Int64("user_id", requesterID))
	return nil
}

// UpdateFamilyName renames a family
func (s *FamilyService) UpdateFamilyName(ctx context.Context, requesterID, familyID int64, name string) (*models.Family, error) {
	if _, err := s.guard.RequireAdmin(ctx, requesterID, familyID); err != nil {
		return nil, err
	}

	name, err := cleanFamilyName(name)
	if err != nil {
		return nil, err
	}
	if err := s.familyRepo.UpdateFamilyName(ctx, familyID, name); err != nil {
		return nil, err
	}
	return s.loadFamily(ctx, familyID)
}

func (s *FamilyService) loadFamily(ctx context.Context, familyID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// RemoveMember removes another member from the family. The requester's
// role is checked under the family lock so two admins removing each other
// cannot both succeed.
func (s *FamilyService) RemoveMember(ctx context.Context, requesterID, familyID, targetUserID int64) error {
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		families := s.familyRepo.WithTx(tx)

		found, err := families.LockFamily(ctx, familyID)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFamilyMember
		}
		if _, err := s.guard.WithTx(tx).RequireAdmin(ctx, requesterID, familyID); err != nil {
			return err
		}
		if targetUserID == requesterID {
			return ErrCannotRemoveSelf
		}

		removed, err := families.RemoveMember(ctx, familyID, targetUserID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrMemberNotFound
		}
		return checkAdminInvariant(ctx, families, familyID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("family member removed",
		zap.Int64("family_id", familyID), zap.Int64("user_id", targetUserID), zap.Int64("by", requesterID))
	return nil
}

// ChangeMemberRole sets a member's role. A change that would leave the
// family without an admin is refused, including an admin demoting themselves.
func (s *FamilyService) ChangeMemberRole(ctx context.Context, requesterID, familyID, targetUserID int64, role models.Role) (*models.FamilyMember, error) {
	var updated *models.FamilyMember
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		families := s.familyRepo.WithTx(tx)

		found, err := families.LockFamily(ctx, familyID)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFamilyMember
		}
		if _, err := s.guard.WithTx(tx).RequireAdmin(ctx, requesterID, familyID); err != nil {
			return err
		}
		if !role.Valid() {
			return ErrInvalidRole
		}

		target, err := families.GetMember(ctx, familyID, targetUserID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrMemberNotFound
		}

		if target.IsAdmin() && role == models.RoleMember {
			_, admins, err := families.CountMembers(ctx, familyID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		if _, err := families.UpdateMemberRole(ctx, familyID, targetUserID, role); err != nil {
			return err
		}
		if err := checkAdminInvariant(ctx, families, familyID); err != nil {
			return err
		}

		target.Role = role
		updated = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("family member role changed",
		zap.Int64("family_id", familyID), zap.Int64("user_id", targetUserID), zap.String("role", string(role)))
	return updated, nil
}

// ListFamilies returns the families userID belongs to with their role and member count
func (s *FamilyService) ListFamilies(ctx context.Context, userID int64) ([]models.FamilySummary, error) {
	return s.familyRepo.GetUserFamilies(ctx, userID)
}

// GetFamily returns a family and its members to any member
func (s *FamilyService) GetFamily(ctx context.Context, userID, familyID int64) (*models.FamilyWithMembers, error) {
	if _, err := s.guard.RequireMember(ctx, userID, familyID); err != nil {
		return nil, err
	}

	family, err := s.loadFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	members, err := s.familyRepo.GetMembers(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return &models.FamilyWithMembers{Family: *family, Members: members}, nil
}

// RegenerateInviteCode replaces a family's invite code; the old code stops working
func (s *FamilyService) RegenerateInviteCode(ctx context.Context, requesterID, familyID int64) (*models.Family, error) {
	if _, err := s.guard.RequireAdmin(ctx, requesterID, familyID); err != nil {
		return nil, err
	}

	_, err := s.withUniqueCode(ctx, func(code string) error {
		return s.familyRepo.UpdateInviteCode(ctx, familyID, code)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invite code regenerated", zap.Int64("family_id", familyID), zap.Int64("user_id", requesterID))
	return s.loadFamily(ctx, familyID)
}

// SendInviteEmail mails the family's invite code to email and records the invitation
func (s *FamilyService) SendInviteEmail(ctx context.Context, requesterID, familyID int64, email string) (*models.Invitation, error) {
	if _, err := s.guard.RequireAdmin(ctx, requesterID, familyID); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	family, err := s.loadFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	inviter, err := s.userRepo.GetUserByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	inviterName := "A family member"
	if inviter != nil {
		inviterName = inviter.Name
	}

	if s.email != nil {
		if err := s.email.SendInvitationEmail(ctx, email, inviterName, family.Name, family.InviteCode); err != nil {
			return nil, err
		}
	}

	invitation, err := s.invitationRepo.CreateInvitation(ctx, familyID, email, requesterID)
	if err != nil {
		return nil, err
	}
	invitation.InviterName = inviterName
	return invitation, nil
}

// ListInvitations returns the invitations sent for a family
func (s *FamilyService) ListInvitations(ctx context.Context, requesterID, familyID int64) ([]models.Invitation, error) {
	if _, err := s.guard.RequireAdmin(ctx, requesterID, familyID); err != nil {
		return nil, err
	}
	return s.invitationRepo.GetFamilyInvitations(ctx, familyID)
}

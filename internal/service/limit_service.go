package service

import (
	"context"
	"time"

	"moneynest/internal/models"
	"moneynest/internal/repository"
	"moneynest/internal/stats"
	"moneynest/internal/validation"
)

// LimitService manages family spending limits. Every operation is admin only.
type LimitService struct {
	limitRepo       *repository.SpendingLimitRepository
	categoryRepo    *repository.CategoryRepository
	transactionRepo *repository.TransactionRepository
	familyRepo      *repository.FamilyRepository
	guard           *Guard
	now             func() time.Time
}

// NewLimitService creates a spending limit service
func NewLimitService(
	limitRepo *repository.SpendingLimitRepository,
	categoryRepo *repository.CategoryRepository,
	transactionRepo *repository.TransactionRepository,
	familyRepo *repository.FamilyRepository,
	guard *Guard,
) *LimitService {
	return &LimitService{
		limitRepo:       limitRepo,
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
		familyRepo:      familyRepo,
		guard:           guard,
		now:             time.Now,
	}
}

// ListLimits returns the family's limits with their consumption in the current period
func (s *LimitService) ListLimits(ctx context.Context, requesterID, familyID int64) ([]stats.LimitStatus, error) {
	if _, err := s.guard.RequireAdmin(ctx, requesterID, familyID); err != nil {
		return nil, err
	}

	limits, err := s.limitRepo.ListLimits(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if len(limits) == 0 {
		return []stats.LimitStatus{}, nil
	}

	// One read of the year covers every period a limit can have
	now := s.now()
	from, _ := stats.PeriodBounds(models.PeriodYearly, now)
	weekStart, _ := stats.PeriodBounds(models.PeriodWeekly, now)
	if weekStart.Before(from) {
		from = weekStart
	}
	transactions, err := s.transactionRepo.ListTransactions(ctx, models.FamilyScope(familyID), models.TransactionFilter{
		From: from.Format(models.DateLayout),
		Type: models.TypeExpense,
	})
	if err != nil {
		return nil, err
	}

	statuses := make([]stats.LimitStatus, 0, len(limits))
	for _, l := range limits {
		statuses = append(statuses, stats.LimitUsage(l, transactions, now))
	}
	return statuses, nil
}

// CreateLimit adds a spending limit to the family
func (s *LimitService) CreateLimit(ctx context.Context, requesterID, familyID int64, in models.SpendingLimitInput) (*models.SpendingLimit, error) {
	if _, err := s.guard.RequireAdmin(ctx, requesterID, familyID); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	scope := models.FamilyScope(familyID)
	if in.CategoryID != nil {
		c, err := s.categoryRepo.GetCategory(ctx, scope, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if c == nil || c.FamilyID != familyID || c.Type != models.TypeExpense {
			return nil, validation.ValidationError{Field: "categoryId", Message: "categoryId must be an expense category of this family"}
		}
	}
	if in.UserID != nil {
		member, err := s.familyRepo.GetMember(ctx, familyID, *in.UserID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, validation.ValidationError{Field: "userId", Message: "userId must be a member of this family"}
		}
	}

	threshold := models.DefaultAlertThreshold
	if in.AlertThreshold != nil {
		threshold = *in.AlertThreshold
	}

	return s.limitRepo.CreateLimit(ctx, models.SpendingLimit{
		FamilyID:       familyID,
		CategoryID:     in.CategoryID,
		UserID:         in.UserID,
		LimitAmount:    in.LimitAmount,
		Period:         in.Period,
		AlertThreshold: threshold,
	})
}

// DeleteLimit removes a spending limit
func (s *LimitService) DeleteLimit(ctx context.Context, requesterID, familyID, limitID int64) error {
	if _, err := s.guard.RequireAdmin(ctx, requesterID, familyID); err != nil {
		return err
	}

	l, err := s.limitRepo.GetLimit(ctx, limitID)
	if err != nil {
		return err
	}
	if l == nil || l.FamilyID != familyID {
		return ErrLimitNotFound
	}
	return s.limitRepo.DeleteLimit(ctx, limitID)
}

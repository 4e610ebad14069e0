package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"moneynest/internal/models"
	"moneynest/internal/repository"
)

// LedgerExportVersion is the format version written into exports
const LedgerExportVersion = "1.0"

// LedgerExport is the JSON document produced by a ledger export
type LedgerExport struct {
	Version      string                 `json:"version"`
	ExportedAt   time.Time              `json:"exportedAt"`
	Scope        models.ScopeKind       `json:"scope"`
	OwnerID      int64                  `json:"ownerId"`
	User         *models.User           `json:"user,omitempty"`
	Family       *models.Family         `json:"family,omitempty"`
	Members      []models.FamilyMember  `json:"members,omitempty"`
	Categories   []models.Category      `json:"categories"`
	Transactions []models.Transaction   `json:"transactions"`
	Limits       []models.SpendingLimit `json:"spendingLimits,omitempty"`
}

// BackupService exports personal and family ledgers to JSON
type BackupService struct {
	userRepo        *repository.UserRepository
	familyRepo      *repository.FamilyRepository
	categoryRepo    *repository.CategoryRepository
	transactionRepo *repository.TransactionRepository
	limitRepo       *repository.SpendingLimitRepository
	logger          *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(
	userRepo *repository.UserRepository,
	familyRepo *repository.FamilyRepository,
	categoryRepo *repository.CategoryRepository,
	transactionRepo *repository.TransactionRepository,
	limitRepo *repository.SpendingLimitRepository,
	logger *zap.Logger,
) *BackupService {
	return &BackupService{
		userRepo:        userRepo,
		familyRepo:      familyRepo,
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
		limitRepo:       limitRepo,
		logger:          logger,
	}
}

// Collect gathers everything in a ledger. Receipt images are included.
func (s *BackupService) Collect(ctx context.Context, scope models.Scope) (*LedgerExport, error) {
	export := &LedgerExport{
		Version:    LedgerExportVersion,
		ExportedAt: time.Now().UTC(),
		Scope:      scope.Kind,
		OwnerID:    scope.OwnerID(),
	}

	if scope.IsFamily() {
		family, err := s.familyRepo.GetFamilyByID(ctx, scope.FamilyID)
		if err != nil {
			return nil, err
		}
		if family == nil {
			return nil, ErrFamilyNotFound
		}
		export.Family = family

		if export.Members, err = s.familyRepo.GetMembers(ctx, scope.FamilyID); err != nil {
			return nil, err
		}
		if export.Limits, err = s.limitRepo.ListLimits(ctx, scope.FamilyID); err != nil {
			return nil, err
		}
	} else {
		user, err := s.userRepo.GetUserByID(ctx, scope.UserID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, kind(ErrNotFound, "user not found")
		}
		export.User = user
	}

	var err error
	if export.Categories, err = s.categoryRepo.ListCategories(ctx, scope); err != nil {
		return nil, fmt.Errorf("failed to export categories: %w", err)
	}

	listed, err := s.transactionRepo.ListTransactions(ctx, scope, models.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to export transactions: %w", err)
	}
	export.Transactions = make([]models.Transaction, 0, len(listed))
	for _, t := range listed {
		full, err := s.transactionRepo.GetTransaction(ctx, scope, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to export transaction %d: %w", t.ID, err)
		}
		if full != nil {
			export.Transactions = append(export.Transactions, *full)
		}
	}

	return export, nil
}

// ExportToWriter writes the ledger of scope to w as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, scope models.Scope, w io.Writer) (*LedgerExport, error) {
	export, err := s.Collect(ctx, scope)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return export, nil
}

// Export writes the ledger of scope to outputPath
func (s *BackupService) Export(ctx context.Context, scope models.Scope, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	export, err := s.ExportToWriter(ctx, scope, file)
	if err != nil {
		return err
	}

	s.logger.Info("ledger exported",
		zap.String("scope", scope.Key()),
		zap.String("path", outputPath),
		zap.Int("categories", len(export.Categories)),
		zap.Int("transactions", len(export.Transactions)),
	)
	return nil
}

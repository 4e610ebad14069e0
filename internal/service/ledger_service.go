package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"moneynest/internal/database"
	"moneynest/internal/models"
	"moneynest/internal/repository"
	"moneynest/internal/stats"
	"moneynest/internal/validation"
)

const (
	categoryNameMax    = 100
	descriptionMax     = 200
	notesMax           = 1000
	defaultReceiptSize = 5 << 20
)

// LedgerService serves the categories and transactions of personal and
// family ledgers. Every call names its ledger with an explicit scope.
type LedgerService struct {
	db              *database.DB
	categoryRepo    *repository.CategoryRepository
	transactionRepo *repository.TransactionRepository
	guard           *Guard
	cache           *stats.Cache
	logger          *zap.Logger
	maxReceiptSize  int
	now             func() time.Time
}

// NewLedgerService creates a ledger service. cache may be nil.
func NewLedgerService(
	db *database.DB,
	categoryRepo *repository.CategoryRepository,
	transactionRepo *repository.TransactionRepository,
	guard *Guard,
	cache *stats.Cache,
	logger *zap.Logger,
	maxReceiptSize int,
) *LedgerService {
	if maxReceiptSize <= 0 {
		maxReceiptSize = defaultReceiptSize
	}
	return &LedgerService{
		db:              db,
		categoryRepo:    categoryRepo,
		transactionRepo: transactionRepo,
		guard:           guard,
		cache:           cache,
		logger:          logger,
		maxReceiptSize:  maxReceiptSize,
		now:             time.Now,
	}
}

// access is the caller's standing in a ledger
type access struct {
	userID int64
	member *models.FamilyMember
}

// authorize checks that userID may read scope. Personal ledgers belong to
// their user alone; family ledgers require membership.
func (s *LedgerService) authorize(ctx context.Context, userID int64, scope models.Scope) (access, error) {
	if !scope.IsFamily() {
		if scope.UserID != userID {
			return access{}, ErrNotOwner
		}
		return access{userID: userID}, nil
	}

	member, err := s.guard.RequireMember(ctx, userID, scope.FamilyID)
	if err != nil {
		return access{}, err
	}
	return access{userID: userID, member: member}, nil
}

// canModify applies the write rule: personal rows by their owner, family rows
// by their creator or any family admin.
func (a access) canModify(ownerOrCreator int64) bool {
	if a.member != nil && a.member.IsAdmin() {
		return true
	}
	return ownerOrCreator == a.userID
}

func (s *LedgerService) invalidate(scope models.Scope) {
	s.cache.Invalidate(scope)
}

// loadCategory fetches a category and maps it against scope. A personal
// category of another user is forbidden; one from another family is not found.
func (s *LedgerService) loadCategory(ctx context.Context, categories *repository.CategoryRepository, scope models.Scope, id int64) (*models.Category, error) {
	c, err := categories.GetCategory(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	if scope.IsFamily() {
		if c.FamilyID != scope.FamilyID {
			return nil, ErrCategoryNotFound
		}
	} else if c.UserID != scope.UserID {
		return nil, ErrNotOwner
	}
	return c, nil
}

func (s *LedgerService) loadTransaction(ctx context.Context, scope models.Scope, id int64) (*models.Transaction, error) {
	tx, err := s.transactionRepo.GetTransaction(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	if scope.IsFamily() {
		if tx.FamilyID != scope.FamilyID {
			return nil, ErrTransactionNotFound
		}
	} else if tx.UserID != scope.UserID {
		return nil, ErrNotOwner
	}
	return tx, nil
}

func categoryCreator(scope models.Scope, c *models.Category) int64 {
	if scope.IsFamily() {
		return c.CreatedBy
	}
	return c.UserID
}

// ListCategories returns the categories of a ledger
func (s *LedgerService) ListCategories(ctx context.Context, userID int64, scope models.Scope) ([]models.Category, error) {
	if _, err := s.authorize(ctx, userID, scope); err != nil {
		return nil, err
	}
	return s.categoryRepo.ListCategories(ctx, scope)
}

// CreateCategory adds a category to a ledger
func (s *LedgerService) CreateCategory(ctx context.Context, userID int64, scope models.Scope, in models.CategoryInput) (*models.Category, error) {
	if _, err := s.authorize(ctx, userID, scope); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	c := models.Category{
		Name:        validation.CleanText(in.Name),
		Icon:        validation.CleanText(in.Icon),
		Type:        in.Type,
		BudgetLimit: in.BudgetLimit,
		Color:       validation.CleanOptional(in.Color),
	}
	if err := validation.ValidateLength("name", c.Name, categoryNameMax); err != nil {
		return nil, err
	}

	created, err := s.categoryRepo.CreateCategory(ctx, scope, userID, c)
	if err != nil {
		return nil, err
	}
	s.invalidate(scope)
	return created, nil
}

// UpdateCategory applies a patch to a category
func (s *LedgerService) UpdateCategory(ctx context.Context, userID int64, scope models.Scope, id int64, patch models.CategoryPatch) (*models.Category, error) {
	acc, err := s.authorize(ctx, userID, scope)
	if err != nil {
		return nil, err
	}

	var updated *models.Category
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		categories := s.categoryRepo.WithTx(tx)

		if _, err := categories.LockCategory(ctx, scope, id); err != nil {
			return err
		}
		c, err := s.loadCategory(ctx, categories, scope, id)
		if err != nil {
			return err
		}
		if !acc.canModify(categoryCreator(scope, c)) {
			return ErrNotOwner
		}
		previousType := c.Type

		if err := applyCategoryPatch(c, patch); err != nil {
			return err
		}

		// Transactions carry their category's type, so the type is frozen
		// while any of them exist.
		if c.Type != previousType {
			count, err := categories.CountTransactions(ctx, scope, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrCategoryTypeInUse
			}
		}

		if err := categories.UpdateCategory(ctx, scope, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(scope)
	return updated, nil
}

func applyCategoryPatch(c *models.Category, patch models.CategoryPatch) error {
	if patch.Name.ApplyValue(&c.Name) {
		return validation.ValidationError{Field: "name", Message: "name cannot be null"}
	}
	c.Name = validation.CleanText(c.Name)
	if err := validation.ValidateLength("name", c.Name, categoryNameMax); err != nil {
		return err
	}

	if patch.Icon.Set && patch.Icon.Null {
		c.Icon = ""
	} else {
		patch.Icon.ApplyValue(&c.Icon)
	}
	c.Icon = validation.CleanText(c.Icon)

	if patch.Type.ApplyValue(&c.Type) || !c.Type.Valid() {
		return validation.ValidationError{Field: "type", Message: "type must be one of: INCOME, EXPENSE"}
	}

	patch.BudgetLimit.Apply(&c.BudgetLimit)
	if c.BudgetLimit != nil && *c.BudgetLimit <= 0 {
		return validation.ValidationError{Field: "budgetLimit", Message: "budgetLimit must be greater than 0"}
	}

	patch.Color.Apply(&c.Color)
	c.Color = validation.CleanOptional(c.Color)
	return nil
}

// DeleteCategory removes a category. A category still referenced by
// transactions is only deleted when reassignTo names another category of the
// same ledger and type; its transactions move there in the same transaction.
func (s *LedgerService) DeleteCategory(ctx context.Context, userID int64, scope models.Scope, id, reassignTo int64) error {
	acc, err := s.authorize(ctx, userID, scope)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		categories := s.categoryRepo.WithTx(tx)

		// The lock orders this delete after any insert already referencing
		// the row, so the count below sees it.
		if _, err := categories.LockCategory(ctx, scope, id); err != nil {
			return err
		}
		c, err := s.loadCategory(ctx, categories, scope, id)
		if err != nil {
			return err
		}
		if !acc.canModify(categoryCreator(scope, c)) {
			return ErrNotOwner
		}

		count, err := categories.CountTransactions(ctx, scope, id)
		if err != nil {
			return err
		}
		if count > 0 {
			if reassignTo == 0 {
				return ErrCategoryInUse
			}
			if reassignTo == id {
				return ErrCategoryMismatch
			}
			target, err := s.loadCategory(ctx, categories, scope, reassignTo)
			if err != nil {
				return ErrCategoryMismatch
			}
			if target.Type != c.Type {
				return ErrCategoryMismatch
			}
			moved, err := categories.ReassignTransactions(ctx, scope, id, reassignTo)
			if err != nil {
				return err
			}
			s.logger.Info("transactions reassigned",
				zap.String("scope", scope.Key()), zap.Int64("from", id), zap.Int64("to", reassignTo), zap.Int64("count", moved))
		}

		return categories.DeleteCategory(ctx, scope, id)
	})
	if errors.Is(err, repository.ErrForeignKey) {
		return ErrCategoryInUse
	}
	if err != nil {
		return err
	}

	s.invalidate(scope)
	return nil
}

// ListTransactions returns a ledger's transactions, newest first
func (s *LedgerService) ListTransactions(ctx context.Context, userID int64, scope models.Scope, filter models.TransactionFilter) ([]models.Transaction, error) {
	if _, err := s.authorize(ctx, userID, scope); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.transactionRepo.ListTransactions(ctx, scope, filter)
}

func validateFilter(f models.TransactionFilter) error {
	if f.From != "" {
		if err := validation.Var("from", f.From, "datetime=2006-01-02"); err != nil {
			return err
		}
	}
	if f.To != "" {
		if err := validation.Var("to", f.To, "datetime=2006-01-02"); err != nil {
			return err
		}
	}
	if f.Type != "" && !f.Type.Valid() {
		return validation.ValidationError{Field: "type", Message: "type must be one of: INCOME, EXPENSE"}
	}
	return nil
}

// GetTransaction returns one transaction including its receipt image
func (s *LedgerService) GetTransaction(ctx context.Context, userID int64, scope models.Scope, id int64) (*models.Transaction, error) {
	if _, err := s.authorize(ctx, userID, scope); err != nil {
		return nil, err
	}
	return s.loadTransaction(ctx, scope, id)
}

func (s *LedgerService) checkReceipt(receipt *string) error {
	if receipt == nil {
		return nil
	}
	if len(*receipt) > s.maxReceiptSize {
		return ErrReceiptTooLarge
	}
	return validation.Var("receiptImage", *receipt, "base64")
}

// checkCategory verifies that categoryID belongs to the ledger and matches typ
func (s *LedgerService) checkCategory(ctx context.Context, scope models.Scope, categoryID int64, typ models.EntryType) (*models.Category, error) {
	c, err := s.categoryRepo.GetCategory(ctx, scope, categoryID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.Type != typ {
		return nil, ErrCategoryMismatch
	}
	if scope.IsFamily() && c.FamilyID != scope.FamilyID || !scope.IsFamily() && c.UserID != scope.UserID {
		return nil, ErrCategoryMismatch
	}
	return c, nil
}

// CreateTransaction records a transaction. The caller is always the recorder.
func (s *LedgerService) CreateTransaction(ctx context.Context, userID int64, scope models.Scope, in models.TransactionInput) (*models.Transaction, error) {
	if _, err := s.authorize(ctx, userID, scope); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkReceipt(in.ReceiptImage); err != nil {
		return nil, err
	}

	t := models.Transaction{
		UserID:       userID,
		CategoryID:   in.CategoryID,
		Amount:       in.Amount,
		Description:  validation.CleanText(in.Description),
		Date:         in.Date,
		Type:         in.Type,
		Notes:        validation.CleanOptional(in.Notes),
		ReceiptImage: in.ReceiptImage,
	}
	if err := validation.ValidateLength("description", t.Description, descriptionMax); err != nil {
		return nil, err
	}

	c, err := s.checkCategory(ctx, scope, t.CategoryID, t.Type)
	if err != nil {
		return nil, err
	}

	created, err := s.transactionRepo.CreateTransaction(ctx, scope, t)
	if errors.Is(err, repository.ErrForeignKey) {
		return nil, ErrCategoryMismatch
	}
	if err != nil {
		return nil, err
	}
	created.CategoryName = c.Name
	s.invalidate(scope)
	return created, nil
}

// UpdateTransaction applies a patch to a transaction
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID int64, scope models.Scope, id int64, patch models.TransactionPatch) (*models.Transaction, error) {
	acc, err := s.authorize(ctx, userID, scope)
	if err != nil {
		return nil, err
	}
	t, err := s.loadTransaction(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !acc.canModify(t.UserID) {
		return nil, ErrNotOwner
	}

	if patch.Amount.ApplyValue(&t.Amount) || t.Amount <= 0 {
		return nil, validation.ValidationError{Field: "amount", Message: "amount must be greater than 0"}
	}

	if patch.Description.ApplyValue(&t.Description) {
		return nil, validation.ValidationError{Field: "description", Message: "description cannot be null"}
	}
	t.Description = validation.CleanText(t.Description)
	if err := validation.ValidateLength("description", t.Description, descriptionMax); err != nil {
		return nil, err
	}

	if patch.Date.ApplyValue(&t.Date) {
		return nil, validation.ValidationError{Field: "date", Message: "date cannot be null"}
	}
	if err := validation.Var("date", t.Date, "datetime=2006-01-02"); err != nil {
		return nil, err
	}

	if patch.Type.ApplyValue(&t.Type) || !t.Type.Valid() {
		return nil, validation.ValidationError{Field: "type", Message: "type must be one of: INCOME, EXPENSE"}
	}
	if patch.CategoryID.ApplyValue(&t.CategoryID) {
		return nil, validation.ValidationError{Field: "categoryId", Message: "categoryId cannot be null"}
	}

	patch.Notes.Apply(&t.Notes)
	t.Notes = validation.CleanOptional(t.Notes)
	if t.Notes != nil && len([]rune(*t.Notes)) > notesMax {
		return nil, validation.ValidationError{Field: "notes", Message: "notes must be at most 1000 characters"}
	}

	patch.ReceiptImage.Apply(&t.ReceiptImage)
	if patch.ReceiptImage.Set {
		if err := s.checkReceipt(t.ReceiptImage); err != nil {
			return nil, err
		}
	}

	c, err := s.checkCategory(ctx, scope, t.CategoryID, t.Type)
	if err != nil {
		return nil, err
	}

	err = s.transactionRepo.UpdateTransaction(ctx, scope, t)
	if errors.Is(err, repository.ErrForeignKey) {
		return nil, ErrCategoryMismatch
	}
	if err != nil {
		return nil, err
	}
	t.CategoryName = c.Name
	s.invalidate(scope)
	return t, nil
}

// DeleteTransaction removes a transaction
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID int64, scope models.Scope, id int64) error {
	acc, err := s.authorize(ctx, userID, scope)
	if err != nil {
		return err
	}
	t, err := s.loadTransaction(ctx, scope, id)
	if err != nil {
		return err
	}
	if !acc.canModify(t.UserID) {
		return ErrNotOwner
	}

	if err := s.transactionRepo.DeleteTransaction(ctx, scope, id); err != nil {
		return err
	}
	s.invalidate(scope)
	return nil
}

// Stats returns the dashboard summary of a ledger, served from the cache
// when a fresh entry exists.
func (s *LedgerService) Stats(ctx context.Context, userID int64, scope models.Scope) (stats.Summary, error) {
	if _, err := s.authorize(ctx, userID, scope); err != nil {
		return stats.Summary{}, err
	}
	if cached, ok := s.cache.Get(scope); ok {
		return cached, nil
	}
	generation := s.cache.Generation(scope)

	var (
		transactions []models.Transaction
		categories   []models.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		transactions, err = s.transactionRepo.ListTransactions(gctx, scope, models.TransactionFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = s.categoryRepo.ListCategories(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return stats.Summary{}, err
	}

	summary := stats.Compute(transactions, categories, s.now())
	s.cache.Set(scope, generation, summary)
	return summary, nil
}

package models

import "time"

// EntryType classifies categories and transactions
type EntryType string

const (
	TypeIncome  EntryType = "INCOME"
	TypeExpense EntryType = "EXPENSE"
)

// Valid reports whether t is INCOME or EXPENSE
func (t EntryType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Category groups transactions of one type and optionally carries a monthly budget.
// Personal categories set UserID; family categories set FamilyID and CreatedBy.
type Category struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId,omitempty"`
	FamilyID    int64     `json:"familyId,omitempty"`
	CreatedBy   int64     `json:"createdBy,omitempty"`
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Type        EntryType `json:"type"`
	BudgetLimit *Money    `json:"budgetLimit"`
	Color       *string   `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CategoryInput is the body of a category create request
type CategoryInput struct {
	Name        string    `json:"name" validate:"required,max=100"`
	Icon        string    `json:"icon" validate:"max=64"`
	Type        EntryType `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	BudgetLimit *Money    `json:"budgetLimit" validate:"omitempty,gt=0"`
	Color       *string   `json:"color" validate:"omitempty,max=32"`
}

// CategoryPatch is the body of a category update request
type CategoryPatch struct {
	Name        Optional[string]    `json:"name"`
	Icon        Optional[string]    `json:"icon"`
	Type        Optional[EntryType] `json:"type"`
	BudgetLimit Optional[Money]     `json:"budgetLimit"`
	Color       Optional[string]    `json:"color"`
}

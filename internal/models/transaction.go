package models

import "time"

// DateLayout is the calendar date format used for transaction dates
const DateLayout = "2006-01-02"

// Transaction is a single income or expense entry.
// UserID is always the recorder; FamilyID is set for family ledger entries.
type Transaction struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	FamilyID     int64     `json:"familyId,omitempty"`
	CategoryID   int64     `json:"categoryId"`
	Amount       Money     `json:"amount"`
	Description  string    `json:"description"`
	Date         string    `json:"date"`
	Type         EntryType `json:"type"`
	Notes        *string   `json:"notes"`
	ReceiptImage *string   `json:"receiptImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	CategoryName string `json:"categoryName,omitempty"` // Populated via JOIN
}

// Day parses Date; the zero time is returned for malformed values
func (t *Transaction) Day() time.Time {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}
	}
	return d
}

// TransactionInput is the body of a transaction create request
type TransactionInput struct {
	Amount       Money     `json:"amount" validate:"gt=0"`
	Description  string    `json:"description" validate:"required,max=200"`
	Date         string    `json:"date" validate:"required,datetime=2006-01-02"`
	CategoryID   int64     `json:"categoryId" validate:"required,gt=0"`
	Type         EntryType `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Notes        *string   `json:"notes" validate:"omitempty,max=1000"`
	ReceiptImage *string   `json:"receiptImage" validate:"omitempty,base64"`
}

// TransactionPatch is the body of a transaction update request
type TransactionPatch struct {
	Amount       Optional[Money]     `json:"amount"`
	Description  Optional[string]    `json:"description"`
	Date         Optional[string]    `json:"date"`
	CategoryID   Optional[int64]     `json:"categoryId"`
	Type         Optional[EntryType] `json:"type"`
	Notes        Optional[string]    `json:"notes"`
	ReceiptImage Optional[string]    `json:"receiptImage"`
}

// TransactionFilter narrows a transaction listing. Zero values are ignored.
type TransactionFilter struct {
	From       string
	To         string
	Type       EntryType
	CategoryID int64
	UserID     int64
}

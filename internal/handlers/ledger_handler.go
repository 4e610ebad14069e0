package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"moneynest/internal/models"
	"moneynest/internal/service"
)

// LedgerHandler serves categories, transactions and stats for one kind of
// ledger. The personal and family routes each get their own instance.
type LedgerHandler struct {
	responder
	ledger  *service.LedgerService
	scope   scopeFunc
	maxBody int64
}

// NewPersonalLedgerHandler serves the caller's own ledger
func NewPersonalLedgerHandler(ledger *service.LedgerService, maxReceiptSize int64, logger *zap.Logger) *LedgerHandler {
	return newLedgerHandler(ledger, personalScope, maxReceiptSize, logger)
}

// NewFamilyLedgerHandler serves the ledger of the family named by the familyId query parameter
func NewFamilyLedgerHandler(ledger *service.LedgerService, maxReceiptSize int64, logger *zap.Logger) *LedgerHandler {
	return newLedgerHandler(ledger, familyScope, maxReceiptSize, logger)
}

func newLedgerHandler(ledger *service.LedgerService, scope scopeFunc, maxReceiptSize int64, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		responder: responder{logger: logger},
		ledger:    ledger,
		scope:     scope,
		maxBody:   maxReceiptSize + maxBodyBytes,
	}
}

// target resolves the scope and, when withID is set, the {id} path parameter
func (h *LedgerHandler) target(w http.ResponseWriter, r *http.Request, withID bool) (models.Scope, int64, bool) {
	scope, err := h.scope(r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrMissingFamilyID, "", nil)
		return models.Scope{}, 0, false
	}
	if !withID {
		return scope, 0, true
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return models.Scope{}, 0, false
	}
	return scope, id, true
}

// ListCategories returns the ledger's categories
func (h *LedgerHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := h.target(w, r, false)
	if !ok {
		return
	}

	categories, err := h.ledger.ListCategories(r.Context(), principal(r).UserID, scope)
	if err != nil {
		h.respondServiceError(w, err, "failed to list categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// CreateCategory adds a category to the ledger
func (h *LedgerHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := h.target(w, r, false)
	if !ok {
		return
	}
	var in models.CategoryInput
	if err := decodeJSON(w, r, maxBodyBytes, &in); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	category, err := h.ledger.CreateCategory(r.Context(), principal(r).UserID, scope, in)
	if err != nil {
		h.respondServiceError(w, err, "failed to create category")
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

// UpdateCategory patches a category
func (h *LedgerHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r, true)
	if !ok {
		return
	}
	var patch models.CategoryPatch
	if err := decodeJSON(w, r, maxBodyBytes, &patch); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	category, err := h.ledger.UpdateCategory(r.Context(), principal(r).UserID, scope, id, patch)
	if err != nil {
		h.respondServiceError(w, err, "failed to update category")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// DeleteCategory removes a category, optionally moving its transactions to reassignTo
func (h *LedgerHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r, true)
	if !ok {
		return
	}
	reassignTo, err := queryID(r, "reassignTo")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid reassignTo", "", nil)
		return
	}

	if err := h.ledger.DeleteCategory(r.Context(), principal(r).UserID, scope, id, reassignTo); err != nil {
		h.respondServiceError(w, err, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions returns the ledger's transactions, newest first
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := h.target(w, r, false)
	if !ok {
		return
	}
	categoryID, err := queryID(r, "categoryId")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid categoryId", "", nil)
		return
	}
	query := r.URL.Query()
	filter := models.TransactionFilter{
		From:       query.Get("from"),
		To:         query.Get("to"),
		Type:       models.EntryType(query.Get("type")),
		CategoryID: categoryID,
	}

	transactions, err := h.ledger.ListTransactions(r.Context(), principal(r).UserID, scope, filter)
	if err != nil {
		h.respondServiceError(w, err, "failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, transactions)
}

// GetTransaction returns one transaction including its receipt
func (h *LedgerHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r, true)
	if !ok {
		return
	}

	transaction, err := h.ledger.GetTransaction(r.Context(), principal(r).UserID, scope, id)
	if err != nil {
		h.respondServiceError(w, err, "failed to get transaction")
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

// CreateTransaction records a transaction
func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := h.target(w, r, false)
	if !ok {
		return
	}
	var in models.TransactionInput
	if err := decodeJSON(w, r, h.maxBody, &in); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	transaction, err := h.ledger.CreateTransaction(r.Context(), principal(r).UserID, scope, in)
	if err != nil {
		h.respondServiceError(w, err, "failed to create transaction")
		return
	}
	respondJSON(w, http.StatusCreated, transaction)
}

// UpdateTransaction patches a transaction
func (h *LedgerHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r, true)
	if !ok {
		return
	}
	var patch models.TransactionPatch
	if err := decodeJSON(w, r, h.maxBody, &patch); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	transaction, err := h.ledger.UpdateTransaction(r.Context(), principal(r).UserID, scope, id, patch)
	if err != nil {
		h.respondServiceError(w, err, "failed to update transaction")
		return
	}
	respondJSON(w, http.StatusOK, transaction)
}

// DeleteTransaction removes a transaction
func (h *LedgerHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	scope, id, ok := h.target(w, r, true)
	if !ok {
		return
	}

	if err := h.ledger.DeleteTransaction(r.Context(), principal(r).UserID, scope, id); err != nil {
		h.respondServiceError(w, err, "failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the ledger's summary figures
func (h *LedgerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	scope, _, ok := h.target(w, r, false)
	if !ok {
		return
	}

	summary, err := h.ledger.Stats(r.Context(), principal(r).UserID, scope)
	if err != nil {
		h.respondServiceError(w, err, "failed to compute stats")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

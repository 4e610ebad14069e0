package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"moneynest/internal/models"
	"moneynest/internal/service"
)

// LimitHandler handles family spending limit requests
type LimitHandler struct {
	responder
	limitService *service.LimitService
}

// NewLimitHandler creates a new spending limit handler
func NewLimitHandler(limitService *service.LimitService, logger *zap.Logger) *LimitHandler {
	return &LimitHandler{
		responder:    responder{logger: logger},
		limitService: limitService,
	}
}

func (h *LimitHandler) familyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	scope, err := familyScope(r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrMissingFamilyID, "", nil)
		return 0, false
	}
	return scope.FamilyID, true
}

// List returns the family's limits with current usage
func (h *LimitHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}

	limits, err := h.limitService.ListLimits(r.Context(), principal(r).UserID, familyID)
	if err != nil {
		h.respondServiceError(w, err, "failed to list spending limits")
		return
	}
	respondJSON(w, http.StatusOK, limits)
}

// Create adds a spending limit
func (h *LimitHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}
	var in models.SpendingLimitInput
	if err := decodeJSON(w, r, maxBodyBytes, &in); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	limit, err := h.limitService.CreateLimit(r.Context(), principal(r).UserID, familyID, in)
	if err != nil {
		h.respondServiceError(w, err, "failed to create spending limit")
		return
	}
	respondJSON(w, http.StatusCreated, limit)
}

// Delete removes a spending limit
func (h *LimitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}
	limitID, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	if err := h.limitService.DeleteLimit(r.Context(), principal(r).UserID, familyID, limitID); err != nil {
		h.respondServiceError(w, err, "failed to delete spending limit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

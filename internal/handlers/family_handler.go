package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"moneynest/internal/models"
	"moneynest/internal/service"
)

// FamilyHandler handles family membership requests
type FamilyHandler struct {
	responder
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, logger *zap.Logger) *FamilyHandler {
	return &FamilyHandler{
		responder:     responder{logger: logger},
		familyService: familyService,
	}
}

type familyNameRequest struct {
	Name string `json:"name"`
}

type joinRequest struct {
	InviteCode string `json:"inviteCode"`
}

type memberRequest struct {
	UserID int64       `json:"userId"`
	Role   models.Role `json:"role"`
}

type inviteEmailRequest struct {
	Email string `json:"email"`
}

// familyID parses the {id} path parameter, writing a 400 when it is malformed
func (h *FamilyHandler) familyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return 0, false
	}
	return id, true
}

// List returns the caller's families
func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	families, err := h.familyService.ListFamilies(r.Context(), principal(r).UserID)
	if err != nil {
		h.respondServiceError(w, err, "failed to list families")
		return
	}
	respondJSON(w, http.StatusOK, families)
}

// Create creates a family with the caller as its admin
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req familyNameRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	family, err := h.familyService.CreateFamily(r.Context(), principal(r).UserID, req.Name)
	if err != nil {
		h.respondServiceError(w, err, "failed to create family")
		return
	}
	respondJSON(w, http.StatusCreated, family)
}

// Join redeems an invite code
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	family, err := h.familyService.JoinFamily(r.Context(), principal(r).UserID, req.InviteCode)
	if err != nil {
		h.respondServiceError(w, err, "failed to join family")
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// Get returns a family with its members
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}

	family, err := h.familyService.GetFamily(r.Context(), principal(r).UserID, familyID)
	if err != nil {
		h.respondServiceError(w, err, "failed to get family")
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// Update renames a family
func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}
	var req familyNameRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	family, err := h.familyService.UpdateFamilyName(r.Context(), principal(r).UserID, familyID, req.Name)
	if err != nil {
		h.respondServiceError(w, err, "failed to rename family")
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// Delete removes a family and everything it owns
func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}

	if err := h.familyService.DeleteFamily(r.Context(), principal(r).UserID, familyID); err != nil {
		h.respondServiceError(w, err, "failed to delete family")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leave removes the caller from a family
func (h *FamilyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}

	if err := h.familyService.LeaveFamily(r.Context(), principal(r).UserID, familyID); err != nil {
		h.respondServiceError(w, err, "failed to leave family")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeRole sets a member's role
func (h *FamilyHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil || req.UserID <= 0 {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	member, err := h.familyService.ChangeMemberRole(r.Context(), principal(r).UserID, familyID, req.UserID, req.Role)
	if err != nil {
		h.respondServiceError(w, err, "failed to change member role")
		return
	}
	respondJSON(w, http.StatusOK, member)
}

// RemoveMember removes another member from a family
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil || req.UserID <= 0 {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	if err := h.familyService.RemoveMember(r.Context(), principal(r).UserID, familyID, req.UserID); err != nil {
		h.respondServiceError(w, err, "failed to remove member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateInviteCode rotates a family's invite code
func (h *FamilyHandler) RegenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}

	family, err := h.familyService.RegenerateInviteCode(r.Context(), principal(r).UserID, familyID)
	if err != nil {
		h.respondServiceError(w, err, "failed to regenerate invite code")
		return
	}
	respondJSON(w, http.StatusOK, family)
}

// SendInviteEmail emails the family's invite code
func (h *FamilyHandler) SendInviteEmail(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}
	var req inviteEmailRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	invitation, err := h.familyService.SendInviteEmail(r.Context(), principal(r).UserID, familyID, req.Email)
	if err != nil {
		h.respondServiceError(w, err, "failed to send invitation")
		return
	}
	respondJSON(w, http.StatusCreated, invitation)
}

// ListInvitations returns the invitations sent for a family
func (h *FamilyHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	familyID, ok := h.familyID(w, r)
	if !ok {
		return
	}

	invitations, err := h.familyService.ListInvitations(r.Context(), principal(r).UserID, familyID)
	if err != nil {
		h.respondServiceError(w, err, "failed to list invitations")
		return
	}
	respondJSON(w, http.StatusOK, invitations)
}

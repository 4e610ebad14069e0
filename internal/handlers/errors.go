package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"moneynest/internal/service"
	"moneynest/internal/validation"
)

type errorBody struct {
	Error string `json:"error"`
}

// kindStatus maps service error kinds to HTTP statuses, checked in order
var kindStatus = []struct {
	kind   error
	status int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrStateViolation, http.StatusBadRequest},
	{service.ErrUnauthenticated, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrRateLimited, http.StatusTooManyRequests},
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// responder renders errors and logs the ones the client cannot act on
type responder struct {
	logger *zap.Logger
}

func (h responder) respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		h.logger.Error(logMsg, zap.Error(err), zap.Int("status", status))
	}
	respondJSON(w, status, errorBody{Error: userMsg})
}

// respondServiceError maps a service error to its status. Unknown errors are
// logged with logMsg and rendered as a generic 500.
func (h responder) respondServiceError(w http.ResponseWriter, err error, logMsg string) {
	var ve validation.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: ve.Message})
		return
	}

	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			respondJSON(w, ks.status, errorBody{Error: userMessage(err, ks.kind)})
			return
		}
	}

	if errors.Is(err, service.ErrExhausted) {
		h.respondWithError(w, http.StatusInternalServerError, userMessage(err, service.ErrExhausted), logMsg, err)
		return
	}
	h.respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
}

// userMessage drops the trailing kind name from a wrapped service error
func userMessage(err, kind error) string {
	return strings.TrimSuffix(err.Error(), ": "+kind.Error())
}

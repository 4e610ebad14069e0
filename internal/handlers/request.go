package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"moneynest/internal/auth"
	"moneynest/internal/models"
)

var errBadParam = errors.New("invalid parameter")

// decodeJSON reads a JSON body of at most limit bytes into v
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return json.NewDecoder(r.Body).Decode(v)
}

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, error) {
	return parseID(chi.URLParam(r, name))
}

// queryID parses a positive integer query parameter. A missing parameter yields 0 and no error.
func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return parseID(raw)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadParam
	}
	return id, nil
}

// principal returns the authenticated caller. RequireAuth guarantees one is present.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// scopeFunc picks the ledger a request targets
type scopeFunc func(r *http.Request) (models.Scope, error)

func personalScope(r *http.Request) (models.Scope, error) {
	return models.PersonalScope(principal(r).UserID), nil
}

func familyScope(r *http.Request) (models.Scope, error) {
	familyID, err := queryID(r, "familyId")
	if err != nil || familyID == 0 {
		return models.Scope{}, errBadParam
	}
	return models.FamilyScope(familyID), nil
}

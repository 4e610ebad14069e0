package models

import "fmt"

// ScopeKind selects which ledger an operation targets
type ScopeKind string

const (
	ScopePersonal ScopeKind = "personal"
	ScopeFamily   ScopeKind = "family"
)

// Scope identifies a ledger. Every ledger operation receives one explicitly.
type Scope struct {
	Kind     ScopeKind
	UserID   int64
	FamilyID int64
}

// PersonalScope is the ledger owned by a single user
func PersonalScope(userID int64) Scope {
	return Scope{Kind: ScopePersonal, UserID: userID}
}

// FamilyScope is the shared ledger of a family
func FamilyScope(familyID int64) Scope {
	return Scope{Kind: ScopeFamily, FamilyID: familyID}
}

// IsFamily reports whether the scope is a family ledger
func (s Scope) IsFamily() bool {
	return s.Kind == ScopeFamily
}

// OwnerID returns the user id for personal scopes and the family id for family scopes
func (s Scope) OwnerID() int64 {
	if s.IsFamily() {
		return s.FamilyID
	}
	return s.UserID
}

// Key is a stable string form used for cache keys
func (s Scope) Key() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.OwnerID())
}

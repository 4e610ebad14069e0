package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service either wraps one of these
// or is an unexpected internal failure.
var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrStateViolation  = errors.New("state violation")
	ErrExhausted       = errors.New("exhausted")
	ErrRateLimited     = errors.New("rate limited")
)

func kind(k error, msg string) error {
	return fmt.Errorf("%s: %w", msg, k)
}

var (
	ErrEmailTaken         = kind(ErrConflict, "email already registered")
	ErrInvalidCredentials = kind(ErrUnauthenticated, "invalid email or password")
	ErrSessionNotFound    = kind(ErrUnauthenticated, "session not found")
	ErrSessionExpired     = kind(ErrUnauthenticated, "session expired")
	ErrEmailNotVerified   = kind(ErrForbidden, "email address is not verified with the provider")

	ErrFamilyNotFound      = kind(ErrNotFound, "family not found")
	ErrNotFamilyMember     = kind(ErrForbidden, "not a member of this family")
	ErrNotFamilyAdmin      = kind(ErrForbidden, "family admin role required")
	ErrAlreadyMember       = kind(ErrConflict, "already a member of this family")
	ErrInvalidInviteCode   = kind(ErrValidation, "invalid invite code format")
	ErrInviteCodeExhausted = kind(ErrExhausted, "could not generate a unique invite code")
	ErrTooManyAttempts     = kind(ErrRateLimited, "too many attempts, try again later")
	ErrLastAdmin           = kind(ErrStateViolation, "family must keep at least one admin")
	ErrSoleMember          = kind(ErrStateViolation, "sole member cannot leave; delete the family instead")
	ErrCannotRemoveSelf    = kind(ErrValidation, "use leave to remove yourself")
	ErrInvalidRole         = kind(ErrValidation, "role must be ADMIN or MEMBER")
	ErrMemberNotFound      = kind(ErrNotFound, "member not found")

	ErrCategoryNotFound    = kind(ErrNotFound, "category not found")
	ErrTransactionNotFound = kind(ErrNotFound, "transaction not found")
	ErrLimitNotFound       = kind(ErrNotFound, "spending limit not found")
	ErrNotOwner            = kind(ErrForbidden, "you do not have access to this resource")
	ErrCategoryInUse       = kind(ErrConflict, "category still has transactions; pass reassignTo")
	ErrCategoryTypeInUse   = kind(ErrConflict, "category type cannot change while transactions use it")
	ErrCategoryMismatch    = kind(ErrValidation, "category does not belong to this ledger or type")
	ErrReceiptTooLarge     = kind(ErrValidation, "receipt image too large")
)

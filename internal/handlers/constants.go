package handlers

const (
	ErrInvalidRequestBody  = "Invalid request body"
	ErrInvalidID           = "Invalid id"
	ErrMissingFamilyID     = "familyId query parameter is required"
	ErrUnauthorized        = "Authentication required"
	ErrInvalidCSRFToken    = "Missing or invalid CSRF token"
	ErrTooManyRequests     = "Too many requests, try again later"
	ErrInternalServerError = "Internal server error"
)

// maxBodyBytes bounds JSON bodies that carry no receipt image
const maxBodyBytes = 1 << 20

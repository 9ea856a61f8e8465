// Package errs defines the sentinel errors shared across the tenant,
// otp, channel and webhook services, grouped by how the HTTP layer
// reports them.
package errs

import "errors"

// Validation
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownEventType = errors.New("unknown event type")
)

// Authorization
var (
	ErrTenantNotActive   = errors.New("tenant not active")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrForbidden         = errors.New("forbidden")
)

// Not found
var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownRoutingKey = errors.New("unknown routing key")
)

// Conflict
var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicatePhone    = errors.New("phone already registered")
	ErrRoutingKeyTaken   = errors.New("routing key already connected")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// One-time codes
var (
	ErrExpired      = errors.New("code expired")
	ErrAlreadyUsed  = errors.New("code already used")
	ErrCodeMismatch = errors.New("code mismatch")
	ErrNotVerified  = errors.New("admin user not fully verified")
)

// Rate limiting
var ErrTooSoon = errors.New("requested too soon")

// IsConflict reports whether err belongs to the conflict group.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrDuplicatePhone) ||
		errors.Is(err, ErrRoutingKeyTaken) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsAuthz reports whether err belongs to the authorization group.
func IsAuthz(err error) bool {
	return errors.Is(err, ErrTenantNotActive) ||
		errors.Is(err, ErrSignatureMismatch) ||
		errors.Is(err, ErrInvalidCredential) ||
		errors.Is(err, ErrForbidden)
}

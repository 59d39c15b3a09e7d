package domain

import "github.com/cockroachdb/errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrValidation           = errors.New("validation failed")
	ErrDuplicateKey         = errors.New("duplicate key")
	ErrUpstream             = errors.New("upstream failure")

	ErrSignatureInvalid    = errors.New("invalid payment signature")
	ErrOrderCreationFailed = errors.New("order creation failed")

	ErrNoToken            = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrPrincipalNotFound  = errors.New("user not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Validationf returns an ErrValidation carrying a caller-facing message.
func Validationf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// IsUnauthenticated reports whether err means the caller could not be identified.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrNoToken) || errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrPrincipalNotFound)
}

// Upstream wraps a gateway or store failure so callers can treat it as retryable.
func Upstream(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrUpstream)
}

// OrderCreationFailed reports a gateway order that could not be created.
func OrderCreationFailed(cause error) error {
	return errors.Mark(errors.Mark(errors.Wrap(cause, ErrOrderCreationFailed.Error()), ErrOrderCreationFailed), ErrUpstream)
}

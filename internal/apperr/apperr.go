// Package apperr defines the error kinds shared by services and the HTTP layer.
// Concrete errors wrap one of these sentinels so callers can classify them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrListingUnavailable    = errors.New("listing unavailable")
	ErrSelfPurchaseForbidden = errors.New("cannot buy your own listing")
	ErrDependency            = errors.New("dependency failure")
)

// Validation returns an ErrValidation carrying a caller-facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Dependency marks err as a failure of an external collaborator.
func Dependency(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrDependency, err))
}

// IsBusiness reports whether err is a rule violation whose message may be shown to the caller.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrListingUnavailable) ||
		errors.Is(err, ErrSelfPurchaseForbidden) ||
		errors.Is(err, ErrUnauthorized)
}

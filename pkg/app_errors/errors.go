package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrEventNotFound   = fmt.Errorf("event %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInsufficientSeats      = errors.New("insufficient seats")
	ErrDuplicateActiveBooking = errors.New("user already holds a confirmed booking for this event")
	// ErrAlreadyCancelled is a soft result: the booking ends up cancelled either way.
	ErrAlreadyCancelled    = errors.New("booking already cancelled")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStoreUnavailable    = errors.New("store unavailable")

	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrInternalServerError = errors.New("internal server error")
)

// IsRetryable reports whether the caller may safely retry the operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrInsufficientSeats)
}

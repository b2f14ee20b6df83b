package cart

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("cart belongs to another user")

	ErrBookingNotFound     = errors.New("booking not found")
	ErrUpstreamUnavailable = errors.New("order service unavailable")
)

package booking

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("booking not found")
	ErrEmptyCart           = errors.New("empty cart")
	ErrTableConflict       = errors.New("tables already booked for this slot")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrBookingCancelled    = errors.New("booking is cancelled")
	ErrBookingPaid         = errors.New("booking is already paid")
	ErrAmountMismatch      = errors.New("paid amount does not match booking total")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrForbidden           = errors.New("not allowed to access this booking")
)

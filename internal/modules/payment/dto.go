package payment

import "restobook/internal/domain"

// Actor is who triggered an operation. Privileged actors (staff, other
// services) may act on any booking.
type Actor struct {
	UserID     string
	Privileged bool
}

type CreatePaymentRequest struct {
	BookingID string               `json:"bookingId" binding:"required"`
	Method    domain.PaymentMethod `json:"method"`
}

type CreatePaymentResult struct {
	Payment *domain.Payment `json:"payment"`
	PayURL  string          `json:"payUrl,omitempty"`
}

// CompleteRequest reconciles a gateway outcome. ResultCode 0 means paid.
type CompleteRequest struct {
	BookingID  string `json:"bookingId" binding:"required"`
	PaymentID  string `json:"paymentId"`
	ResultCode *int   `json:"resultCode" binding:"required"`
}

type ExpiredRequest struct {
	BookingID string               `json:"bookingId" binding:"required"`
	UserID    string               `json:"userId"`
	Amount    int64                `json:"amount" binding:"gte=0"`
	Method    domain.PaymentMethod `json:"method"`
}

package payment

import (
	"context"
	"time"

	"restobook/internal/clients"
	"restobook/internal/domain"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	ListByBooking(ctx context.Context, bookingID string) ([]domain.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Payment, error)
	FindSuccessByBooking(ctx context.Context, bookingID string) (*domain.Payment, error)
	FindLatestPending(ctx context.Context, bookingID string) (*domain.Payment, error)
	SetGatewayResult(ctx context.Context, id, transactionID, payURL string) error
	UpdateStatusIfPending(ctx context.Context, id string, status domain.PaymentRecordStatus, reason string) (bool, error)
	MarkSuccessIdempotent(ctx context.Context, id string, paidAt time.Time) (bool, error)
}

// BookingClient is the order service as seen from payments.
type BookingClient interface {
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	MarkPaid(ctx context.Context, bookingID, paymentID string, amount int64) (*clients.MarkPaidResult, error)
}

// IPNVerifier checks the signature of a gateway notification.
type IPNVerifier interface {
	VerifyIPN(n MomoIPN) error
}

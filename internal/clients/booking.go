package clients

import (
	"context"
	"net/url"

	"restobook/internal/domain"
)

// BookingClient talks to the order service on behalf of payments.
type BookingClient struct {
	c *caller
}

func NewBookingClient(o Options) *BookingClient {
	return &BookingClient{c: newCaller(o)}
}

func (bc *BookingClient) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	var b domain.Booking
	if err := bc.c.read(ctx, "/api/bookings/"+url.PathEscape(bookingID), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkPaidResult mirrors the order service's mark-paid answer.
type MarkPaidResult struct {
	Booking       domain.Booking `json:"booking"`
	AlreadyPaid   bool           `json:"alreadyPaid"`
	PaidPaymentID string         `json:"paidPaymentId,omitempty"`
}

// Winner is the payment attempt that settled the booking, if known.
func (r *MarkPaidResult) Winner() string {
	if r.PaidPaymentID != "" {
		return r.PaidPaymentID
	}
	return r.Booking.PaidPaymentID
}

type markPaidRequest struct {
	PaymentID string `json:"paymentId,omitempty"`
	Amount    int64  `json:"amount"`
}

// MarkPaid is not retried: a timed out call may still have landed.
func (bc *BookingClient) MarkPaid(ctx context.Context, bookingID, paymentID string, amount int64) (*MarkPaidResult, error) {
	var res MarkPaidResult
	body := markPaidRequest{PaymentID: paymentID, Amount: amount}
	if err := bc.c.write(ctx, "POST", "/api/bookings/"+url.PathEscape(bookingID)+"/mark-paid", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

package clients

import (
	"context"

	"restobook/internal/domain"
)

// PaymentClient lets the order service report expirations.
type PaymentClient struct {
	c *caller
}

func NewPaymentClient(o Options) *PaymentClient {
	return &PaymentClient{c: newCaller(o)}
}

type ExpiredRequest struct {
	BookingID string               `json:"bookingId"`
	UserID    string               `json:"userId,omitempty"`
	Amount    int64                `json:"amount"`
	Method    domain.PaymentMethod `json:"method,omitempty"`
}

func (pc *PaymentClient) RecordExpired(ctx context.Context, req ExpiredRequest) error {
	return pc.c.write(ctx, "POST", "/api/payments/expired", req, nil)
}

package payment

import (
	"context"

	"restobook/internal/domain"
)

type GatewayRequest struct {
	PaymentID     string
	BookingID     string
	TransactionID string
	Amount        int64
	OrderInfo     string
}

// GatewayResult is what a gateway answered when a payment was opened.
// Completed is true when the gateway settled the payment within the call.
type GatewayResult struct {
	TransactionID string
	PayURL        string
	Completed     bool
}

type Gateway interface {
	Method() domain.PaymentMethod
	Create(ctx context.Context, req GatewayRequest) (*GatewayResult, error)
}

// MockGateway settles every payment immediately. Err, when set, is returned
// instead.
type MockGateway struct {
	Err error
}

func (MockGateway) Method() domain.PaymentMethod { return domain.MethodMock }

func (g MockGateway) Create(_ context.Context, req GatewayRequest) (*GatewayResult, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	return &GatewayResult{TransactionID: req.TransactionID, Completed: true}, nil
}

package cart

import (
	"context"

	"restobook/internal/domain"
)

// Store is implemented by the Redis and the relational cart repositories.
type Store interface {
	Get(ctx context.Context, bookingID string) (*domain.Cart, error)
	SetItem(ctx context.Context, bookingID, userID string, item domain.CartItem) error
	RemoveItem(ctx context.Context, bookingID, productID string) error
	Clear(ctx context.Context, bookingID string) error
}

// BookingReader looks up the booking a cart is attached to. The order service
// client implements it.
type BookingReader interface {
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
}
